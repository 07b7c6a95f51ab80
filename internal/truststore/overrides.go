package truststore

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	domainsBucket = []byte("domains")
	orgsBucket    = []byte("organizations")
)

// OverrideDB keeps manual trust additions in a bbolt file.
type OverrideDB struct {
	db *bbolt.DB
}

func OpenOverrides(path string) (*OverrideDB, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open overrides db: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{domainsBucket, orgsBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &OverrideDB{db: db}, nil
}

func (o *OverrideDB) PutDomain(domain string) error {
	return o.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(domainsBucket).Put([]byte(domain), []byte{})
	})
}

func (o *OverrideDB) PutOrganization(name, verificationURL string) error {
	return o.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(orgsBucket).Put([]byte(name), []byte(verificationURL))
	})
}

// Replay applies every stored override to s. It must run before
// s.SetPersister(o), otherwise each entry is written back.
func (o *OverrideDB) Replay(s *Store) (int, error) {
	var domains []string
	var orgs [][2]string
	if err := o.db.View(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(domainsBucket).ForEach(func(k, _ []byte) error {
			domains = append(domains, string(k))
			return nil
		}); err != nil {
			return err
		}
		return tx.Bucket(orgsBucket).ForEach(func(k, v []byte) error {
			orgs = append(orgs, [2]string{string(k), string(v)})
			return nil
		})
	}); err != nil {
		return 0, err
	}
	n := 0
	for _, d := range domains {
		if err := s.AddTrustedDomain(d); err != nil {
			return n, err
		}
		n++
	}
	for _, kv := range orgs {
		if err := s.AddOrganization(kv[0], kv[1]); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (o *OverrideDB) Close() error { return o.db.Close() }
