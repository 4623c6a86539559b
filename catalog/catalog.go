// Package catalog loads and holds the in-memory book catalog the ranker reads.
package catalog

import (
	"github.com/aluiziolira/go-nextbook/models"
)

// Catalog is an immutable, ordered collection of cleaned books. It is safe
// for concurrent readers.
type Catalog struct {
	books   []*models.Book
	byID    map[string]*models.Book
	titles  []string
	authors []string
}

// New builds a catalog from books, preserving their order.
func New(books []*models.Book) *Catalog {
	c := &Catalog{
		books: make([]*models.Book, 0, len(books)),
		byID:  make(map[string]*models.Book, len(books)),
	}
	seenTitles := make(map[string]struct{})
	seenAuthors := make(map[string]struct{})
	for _, b := range books {
		if b == nil {
			continue
		}
		c.books = append(c.books, b)
		if b.ID != "" {
			if _, ok := c.byID[b.ID]; !ok {
				c.byID[b.ID] = b
			}
		}
		if _, ok := seenTitles[b.Title]; !ok {
			seenTitles[b.Title] = struct{}{}
			c.titles = append(c.titles, b.Title)
		}
		if _, ok := seenAuthors[b.Authors]; !ok {
			seenAuthors[b.Authors] = struct{}{}
			c.authors = append(c.authors, b.Authors)
		}
	}
	return c
}

// Books returns the catalog records in load order. Callers must not modify them.
func (c *Catalog) Books() []*models.Book {
	if c == nil {
		return nil
	}
	return c.books
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.books)
}

// ByID looks up a record by its identifier.
func (c *Catalog) ByID(id string) (*models.Book, bool) {
	if c == nil {
		return nil, false
	}
	b, ok := c.byID[id]
	return b, ok
}

// Titles returns the distinct titles in first-seen order.
func (c *Catalog) Titles() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.titles...)
}

// Authors returns the distinct author strings in first-seen order.
func (c *Catalog) Authors() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.authors...)
}
