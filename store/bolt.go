package store

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketEntities = []byte("entities")
	bucketTypeName = []byte("idx_type_name")
	bucketCategory = []byte("idx_entity_type")
)

// BoltStore is a Store backed by an embedded bbolt database: a
// primary bucket of id -> json-encoded Record, plus two secondary
// index buckets mapping an index key to a newline-joined list of ids
// in insertion order. Grounded on the bucket-per-index layout
// denisvmedia-inventario's boltdb registries use, reimplemented
// directly against *bolt.DB since that package's own repository base
// type is internal to its module.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if necessary) a bbolt database at
// path and prepares its buckets.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	s := &BoltStore{db: db}
	if err := s.prepare(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BoltStore) prepare() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketEntities, bucketTypeName, bucketCategory} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("store: create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

func (s *BoltStore) Append(r Record) error {
	if err := validate(r); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		entities := tx.Bucket(bucketEntities)
		if entities.Get([]byte(r.ID)) != nil {
			return ErrDuplicateID
		}
		enc, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("store: encode %s: %w", r.ID, err)
		}
		if err := entities.Put([]byte(r.ID), enc); err != nil {
			return err
		}
		if err := appendIndex(tx.Bucket(bucketCategory), string(r.EntityType), r.ID); err != nil {
			return err
		}
		if r.TypeName != "" {
			if err := appendIndex(tx.Bucket(bucketTypeName), lowerASCII(r.TypeName), r.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Get(id string) (Record, bool, error) {
	var r Record
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketEntities).Get([]byte(id))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &r)
	})
	return r, found, err
}

func (s *BoltStore) ScanByType(typeName string) ([]Record, error) {
	return s.scanIndex(bucketTypeName, lowerASCII(typeName))
}

func (s *BoltStore) ScanByCategory(t EntityType) ([]Record, error) {
	return s.scanIndex(bucketCategory, string(t))
}

func (s *BoltStore) scanIndex(bucket []byte, key string) ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		ids := readIndex(tx.Bucket(bucket), key)
		entities := tx.Bucket(bucketEntities)
		for _, id := range ids {
			v := entities.Get([]byte(id))
			if v == nil {
				continue
			}
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("store: decode %s: %w", id, err)
			}
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) All() ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntities).ForEach(func(_, v []byte) error {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			out = append(out, r)
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) Reset() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketEntities, bucketTypeName, bucketCategory} {
			if err := tx.DeleteBucket(name); err != nil && err != bolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// appendIndex and readIndex store each index's id list as a single
// newline-joined value. Index fan-out in a typical exchange file is
// small (a handful of distinct type names, two entity_type values),
// so a read-modify-write per Append is cheap next to the json encode
// it sits beside.
func appendIndex(b *bolt.Bucket, key, id string) error {
	ids := readIndex(b, key)
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)
	return b.Put([]byte(key), []byte(joinLines(ids)))
}

func readIndex(b *bolt.Bucket, key string) []string {
	v := b.Get([]byte(key))
	if v == nil {
		return nil
	}
	return splitLines(string(v))
}

func joinLines(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += "\n"
		}
		out += id
	}
	return out
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
