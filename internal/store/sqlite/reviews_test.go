package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/shelfnotes/shelfnotes-server/internal/store"
	"github.com/shelfnotes/shelfnotes-server/internal/store/storetest"
)

func TestUpsertReview_RatingCheck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := storetest.NewUser("checker")
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	b := storetest.NewBookSaved(t, s, "vol-check")

	for _, rating := range []int{0, 6} {
		_, _, err := s.UpsertReview(ctx, storetest.NewReview(u, b, rating, "Out of range"))
		if !errors.Is(err, store.ErrInvalidInput) {
			t.Errorf("rating %d: expected ErrInvalidInput, got %v", rating, err)
		}
	}
}

func TestReviewIDs_DerivedFromReviews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := storetest.NewUser("deriver")
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	b := storetest.NewBookSaved(t, s, "vol-derive")
	r := storetest.NewReview(u, b, 3, "Fine")
	if _, _, err := s.UpsertReview(ctx, r); err != nil {
		t.Fatal(err)
	}

	// Rows removed behind the store's back disappear from both lists.
	if _, err := s.db.Exec("DELETE FROM reviews WHERE id = ?", r.ID); err != nil {
		t.Fatal(err)
	}

	gotUser, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(gotUser.ReviewIDs) != 0 {
		t.Errorf("user review ids = %v", gotUser.ReviewIDs)
	}
	gotBook, err := s.GetBook(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(gotBook.ReviewIDs) != 0 {
		t.Errorf("book review ids = %v", gotBook.ReviewIDs)
	}
}

func TestReviews_CascadeOnUserDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := storetest.NewUser("leaver")
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	b := storetest.NewBookSaved(t, s, "vol-cascade")
	if _, _, err := s.UpsertReview(ctx, storetest.NewReview(u, b, 5, "Bye")); err != nil {
		t.Fatal(err)
	}

	if _, err := s.db.Exec("DELETE FROM users WHERE id = ?", u.ID); err != nil {
		t.Fatal(err)
	}

	reviews, err := s.ListReviewsByBook(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(reviews) != 0 {
		t.Errorf("expected reviews to cascade, got %d", len(reviews))
	}
}
