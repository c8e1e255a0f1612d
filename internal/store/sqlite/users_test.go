package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/shelfnotes/shelfnotes-server/internal/store"
	"github.com/shelfnotes/shelfnotes-server/internal/store/storetest"
)

func TestCreateUser_StoresLowercaseEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := storetest.NewUser("mixed")
	u.Email = "  Mixed.Case@Example.COM "
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	var lower string
	if err := s.db.QueryRow("SELECT email_lower FROM users WHERE id = ?", u.ID).Scan(&lower); err != nil {
		t.Fatalf("query email_lower: %v", err)
	}
	if lower != "mixed.case@example.com" {
		t.Errorf("email_lower = %q", lower)
	}
}

func TestCreateUser_WithoutGoogleID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Users without a provider subject do not collide on the partial index.
	for _, name := range []string{"one", "two"} {
		u := storetest.NewUser(name)
		u.GoogleID = ""
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser(%s): %v", name, err)
		}
	}
}

func TestUpdateUser_EmailCollision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := storetest.NewUser("a")
	b := storetest.NewUser("b")
	if err := s.CreateUser(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateUser(ctx, b); err != nil {
		t.Fatal(err)
	}

	b.Email = "A@example.com"
	err := s.UpdateUser(ctx, b)
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}
