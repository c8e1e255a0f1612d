package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfnotes/shelfnotes-server/internal/store"
)

// Entity provides generic CRUD operations for any domain type.
//
// The *Txn variants run inside a caller-supplied read-write transaction so
// several entities can be changed atomically.
type Entity[T any] struct {
	store   *Store
	prefix  string
	indexes []Index[T]
}

// Index defines a unique secondary index on an entity.
// keyGen may return no keys to leave an entity out of the index.
type Index[T any] struct {
	name            string
	keyGen          func(*T) []string
	lookupTransform func(string) string // Optional transformation for lookups
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{
		store:   s,
		prefix:  prefix,
		indexes: make([]Index[T], 0),
	}
}

// WithIndex adds a unique secondary index to the entity.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{
		name:   name,
		keyGen: keyGen,
	})
	return e
}

// WithIndexTransform adds a secondary index with lookup transformation.
// The lookupTransform function is applied to search values before index lookup,
// enabling case-insensitive searches, normalization, etc.
func (e *Entity[T]) WithIndexTransform(name string, keyGen func(*T) []string, lookupTransform func(string) string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{
		name:            name,
		keyGen:          keyGen,
		lookupTransform: lookupTransform,
	})
	return e
}

// Create creates a new entity with the given ID.
// Returns store.ErrAlreadyExists if the ID or any index key is taken.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.store.db.Update(func(txn *badger.Txn) error {
		return e.CreateTxn(txn, id, entity)
	})
}

// CreateTxn is Create within txn.
func (e *Entity[T]) CreateTxn(txn *badger.Txn, id string, entity *T) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	exists, err := keyExists(txn, buildKey(e.prefix, id))
	if err != nil {
		return fmt.Errorf("failed to check existing key: %w", err)
	}
	if exists {
		return store.ErrAlreadyExists
	}

	if err := e.checkIndexConflicts(txn, entity, nil); err != nil {
		return err
	}

	if err := txn.Set(entityKey(e.prefix, id), data); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	return e.setIndexes(txn, id, entity)
}

// Get retrieves an entity by ID.
// Returns store.ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		var err error
		entity, err = e.GetTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// GetTxn is Get within txn.
func (e *Entity[T]) GetTxn(txn *badger.Txn, id string) (*T, error) {
	key := buildKey(e.prefix, id)
	defer releaseKey(key)

	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var entity T
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entity)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return &entity, nil
}

// GetByIndex retrieves an entity by secondary index.
// If the index has a lookup transform, it will be applied to the value before lookup.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		var err error
		entity, err = e.GetByIndexTxn(txn, indexName, value)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// GetByIndexTxn is GetByIndex within txn.
func (e *Entity[T]) GetByIndexTxn(txn *badger.Txn, indexName, value string) (*T, error) {
	for _, idx := range e.indexes {
		if idx.name == indexName && idx.lookupTransform != nil {
			value = idx.lookupTransform(value)
			break
		}
	}

	key := buildIndexKey(e.prefix, indexName, value)
	defer releaseKey(key)

	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get index key: %w", err)
	}

	id, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read index value: %w", err)
	}

	return e.GetTxn(txn, string(id))
}

// Update updates an existing entity.
// Returns store.ErrNotFound if the entity does not exist.
func (e *Entity[T]) Update(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.store.db.Update(func(txn *badger.Txn) error {
		return e.UpdateTxn(txn, id, entity)
	})
}

// UpdateTxn is Update within txn.
func (e *Entity[T]) UpdateTxn(txn *badger.Txn, id string, entity *T) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	old, err := e.GetTxn(txn, id)
	if err != nil {
		return err
	}

	if err := e.checkIndexConflicts(txn, entity, old); err != nil {
		return err
	}

	if err := e.deleteIndexes(txn, old); err != nil {
		return err
	}

	if err := txn.Set(entityKey(e.prefix, id), data); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	return e.setIndexes(txn, id, entity)
}

// Delete deletes an entity by ID.
// This operation is idempotent - it does not return an error if the entity does not exist.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.store.db.Update(func(txn *badger.Txn) error {
		err := e.DeleteTxn(txn, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
}

// DeleteTxn deletes an entity and its index keys within txn.
// Unlike Delete it returns store.ErrNotFound for a missing entity.
func (e *Entity[T]) DeleteTxn(txn *badger.Txn, id string) error {
	entity, err := e.GetTxn(txn, id)
	if err != nil {
		return err
	}

	if err := e.deleteIndexes(txn, entity); err != nil {
		return err
	}

	if err := txn.Delete(entityKey(e.prefix, id)); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// List returns an iterator over all entities.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		_ = e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
				if ctx.Err() != nil {
					yield(nil, ctx.Err())
					return ctx.Err()
				}

				// Skip index keys
				key := string(it.Item().Key())
				if strings.HasPrefix(key[len(e.prefix):], "idx:") {
					continue
				}

				var entity T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				})
				if err != nil {
					yield(nil, err)
					return err
				}

				if !yield(&entity, nil) {
					return nil // Consumer stopped early
				}
			}

			return nil
		})
	}
}

// checkIndexConflicts returns store.ErrAlreadyExists if any index key of entity is
// taken, ignoring keys already owned by old.
func (e *Entity[T]) checkIndexConflicts(txn *badger.Txn, entity, old *T) error {
	for _, idx := range e.indexes {
		owned := make(map[string]bool)
		if old != nil {
			for _, k := range idx.keyGen(old) {
				owned[k] = true
			}
		}

		for _, value := range idx.keyGen(entity) {
			if owned[value] {
				continue
			}
			exists, err := keyExists(txn, buildIndexKey(e.prefix, idx.name, value))
			if err != nil {
				return fmt.Errorf("failed to check index key: %w", err)
			}
			if exists {
				return fmt.Errorf("index %s conflict on key %s: %w", idx.name, value, store.ErrAlreadyExists)
			}
		}
	}
	return nil
}

func (e *Entity[T]) setIndexes(txn *badger.Txn, id string, entity *T) error {
	for _, idx := range e.indexes {
		for _, value := range idx.keyGen(entity) {
			if err := txn.Set(indexKey(e.prefix, idx.name, value), []byte(id)); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}
	return nil
}

func (e *Entity[T]) deleteIndexes(txn *badger.Txn, entity *T) error {
	for _, idx := range e.indexes {
		for _, value := range idx.keyGen(entity) {
			if err := txn.Delete(indexKey(e.prefix, idx.name, value)); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
	}
	return nil
}

// keyExists reports whether key is present and releases the pooled key.
func keyExists(txn *badger.Txn, key []byte) (bool, error) {
	defer releaseKey(key)

	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
