package index

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.etcd.io/bbolt"

	"urpaq/internal/domain"
	"urpaq/internal/port"
)

var (
	bucketDocs     = []byte("docs")
	bucketPostings = []byte("postings")
	bucketDocTerms = []byte("doc_terms")
)

const (
	exactWeight = 1.0
	fuzzyWeight = 0.6
)

// BoltIndex is a bbolt-backed full-text index over the document corpus. It
// serves both the write path (Put/DeleteByDoc at ingestion) and the read
// path (Search with fuzzy term matching over name and text fields).
type BoltIndex struct {
	db *bbolt.DB
}

func NewBoltIndex(path string) (*BoltIndex, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketDocs, bucketPostings, bucketDocTerms} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltIndex{db: db}, nil
}

type docMeta struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Put stores the document and indexes its name and text tokens.
func (s *BoltIndex) Put(doc domain.Document) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := s.removePostings(tx, doc.ID); err != nil {
			return err
		}

		data, err := json.Marshal(docMeta{Name: doc.Name, Text: doc.Text})
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketDocs).Put([]byte(doc.ID), data); err != nil {
			return err
		}

		tf := termFrequencies(doc.Name, doc.Text)
		terms := make([]string, 0, len(tf))
		postings := tx.Bucket(bucketPostings)
		for term, n := range tf {
			perDoc, err := readPosting(postings, term)
			if err != nil {
				return err
			}
			perDoc[doc.ID] = n
			if err := writePosting(postings, term, perDoc); err != nil {
				return err
			}
			terms = append(terms, term)
		}

		termData, err := json.Marshal(terms)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketDocTerms).Put([]byte(doc.ID), termData)
	})
}

// Get returns a stored document by id.
func (s *BoltIndex) Get(id string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("document not found: %s", id)
		}
		var meta docMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		doc = domain.Document{ID: id, Name: meta.Name, Text: meta.Text}
		return nil
	})
	return doc, err
}

// DeleteByDoc removes the document and every chunk document whose id is
// prefixed with the document id.
func (s *BoltIndex) DeleteByDoc(docID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketDocs)

		var ids []string
		c := docs.Cursor()
		prefix := []byte(docID)
		for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), docID); k, _ = c.Next() {
			ids = append(ids, string(k))
		}

		for _, id := range ids {
			if err := s.removePostings(tx, id); err != nil {
				return err
			}
			if err := docs.Delete([]byte(id)); err != nil {
				return err
			}
			if err := tx.Bucket(bucketDocTerms).Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of stored documents.
func (s *BoltIndex) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketDocs).Stats().KeyN
		return nil
	})
	return n, err
}

// Search scores every document matching the criteria text against name and
// text fields. Blank text yields no hits. Scores are tf-idf sums where an
// exact term match counts full and a shared-prefix match counts at the
// fuzzy weight.
func (s *BoltIndex) Search(ctx context.Context, criteria port.SearchCriteria) ([]port.SearchHit, error) {
	queryTokens := Tokenize(criteria.Text)
	if len(queryTokens) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	err := s.db.View(func(tx *bbolt.Tx) error {
		postings := tx.Bucket(bucketPostings)
		totalDocs := tx.Bucket(bucketDocs).Stats().KeyN
		if totalDocs == 0 {
			return nil
		}

		for _, token := range queryTokens {
			matched, err := s.matchTerm(postings, token)
			if err != nil {
				return err
			}
			for docID, weighted := range matched {
				df := len(matched)
				idf := math.Log(1 + float64(totalDocs)/float64(1+df))
				scores[docID] += weighted * idf
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	hits := make([]port.SearchHit, 0, len(scores))
	for docID, score := range scores {
		doc, err := s.Get(docID)
		if err != nil {
			continue
		}
		hits = append(hits, port.SearchHit{Document: doc, Score: score})
	}
	return hits, nil
}

// matchTerm collects per-document weighted term frequencies for one query
// token: the exact term plus fuzzy prefix neighbors.
func (s *BoltIndex) matchTerm(postings *bbolt.Bucket, token string) (map[string]float64, error) {
	matched := make(map[string]float64)

	perDoc, err := readPosting(postings, token)
	if err != nil {
		return nil, err
	}
	for docID, n := range perDoc {
		matched[docID] += exactWeight * float64(n)
	}

	prefix := fuzzyPrefix(token)
	if prefix == "" {
		return matched, nil
	}

	c := postings.Cursor()
	for k, v := c.Seek([]byte(prefix)); k != nil && strings.HasPrefix(string(k), prefix); k, v = c.Next() {
		if string(k) == token {
			continue
		}
		var neighbors map[string]int
		if err := json.Unmarshal(v, &neighbors); err != nil {
			return nil, err
		}
		for docID, n := range neighbors {
			matched[docID] += fuzzyWeight * float64(n)
		}
	}
	return matched, nil
}

func (s *BoltIndex) removePostings(tx *bbolt.Tx, docID string) error {
	termData := tx.Bucket(bucketDocTerms).Get([]byte(docID))
	if termData == nil {
		return nil
	}
	var terms []string
	if err := json.Unmarshal(termData, &terms); err != nil {
		return err
	}

	postings := tx.Bucket(bucketPostings)
	for _, term := range terms {
		perDoc, err := readPosting(postings, term)
		if err != nil {
			return err
		}
		delete(perDoc, docID)
		if len(perDoc) == 0 {
			if err := postings.Delete([]byte(term)); err != nil {
				return err
			}
			continue
		}
		if err := writePosting(postings, term, perDoc); err != nil {
			return err
		}
	}
	return nil
}

func readPosting(b *bbolt.Bucket, term string) (map[string]int, error) {
	perDoc := make(map[string]int)
	if data := b.Get([]byte(term)); data != nil {
		if err := json.Unmarshal(data, &perDoc); err != nil {
			return nil, err
		}
	}
	return perDoc, nil
}

func writePosting(b *bbolt.Bucket, term string, perDoc map[string]int) error {
	data, err := json.Marshal(perDoc)
	if err != nil {
		return err
	}
	return b.Put([]byte(term), data)
}

func (s *BoltIndex) Close() error {
	return s.db.Close()
}
