package domain

import "strings"

// BookCategory is one main category of a book with the subcategories it is filed under.
type BookCategory struct {
	Name          string   `json:"name"`
	SubCategories []string `json:"smallCategory"`
}

type Book struct {
	ID              string         `json:"id,omitempty"`
	Code            string         `json:"bookId,omitempty"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Authors         []string       `json:"author"`
	PublicationYear int            `json:"publicationYear"`
	Categories      []BookCategory `json:"bigCategory"`
	Quantity        int            `json:"quantity"`
	Available       bool           `json:"availability"`
	Image           string         `json:"img"`
	Publisher       string         `json:"nxb"`
}

// Key is the identifier the backend expects in update/delete paths.
func (b Book) Key() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Code
}

func (b Book) AuthorList() string { return strings.Join(b.Authors, ", ") }

// SubCategoryList flattens every subcategory of every main category.
func (b Book) SubCategoryList() string {
	var subs []string
	for _, c := range b.Categories {
		subs = append(subs, c.SubCategories...)
	}
	return strings.Join(subs, ", ")
}

// MainCategory returns the first main category and its first subcategory.
func (b Book) MainCategory() (main, sub string) {
	if len(b.Categories) == 0 {
		return "", ""
	}
	main = b.Categories[0].Name
	if len(b.Categories[0].SubCategories) > 0 {
		sub = b.Categories[0].SubCategories[0]
	}
	return main, sub
}

type Member struct {
	ID            string   `json:"id,omitempty"`
	MemberID      string   `json:"memberId"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Phone         string   `json:"phoneNumber"`
	Address       string   `json:"address"`
	Transactions  []string `json:"transactions"`
	BooksBorrowed int      `json:"booksBorrowed"`
}

type Status string

const (
	StatusBorrowed Status = "borrowed"
	StatusReturned Status = "returned"
	StatusRenewed  Status = "renewed"
)

// ParseStatus maps a tab or status string to a Status; unknown values fall back to borrowed.
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusReturned:
		return StatusReturned
	case StatusRenewed:
		return StatusRenewed
	default:
		return StatusBorrowed
	}
}

type Transaction struct {
	ID              string `json:"id"`
	MemberID        string `json:"memberId"`
	MemberName      string `json:"memberName"`
	Phone           string `json:"phoneNumber"`
	BookID          string `json:"bookId"`
	BookTitle       string `json:"bookTitle"`
	Author          string `json:"author"`
	TransactionDate string `json:"transactionDate"`
	DueDate         string `json:"dueDate"`
	Status          Status `json:"status"`
}

func (t Transaction) IsBorrowed() bool {
	return strings.EqualFold(strings.TrimSpace(string(t.Status)), string(StatusBorrowed))
}

// Category is a backend main category with its subcategories.
type Category struct {
	Name          string
	SubCategories []string
}

// CategoryRow is one line of the flattened category table.
type CategoryRow struct {
	Name   string
	Parent string
	IsSub  bool
}

// Counts backs the overview cards.
type Counts struct {
	Books    int
	Members  int
	Borrowed int
	Returned int
}

type StatPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Page is the backend pagination envelope. CurrentPage is 0-based on the wire.
type Page[T any] struct {
	Data        []T  `json:"data"`
	CurrentPage int  `json:"currentPage"`
	TotalItems  int  `json:"totalItems"`
	TotalPages  int  `json:"totalPages"`
	Size        int  `json:"size"`
	HasNext     bool `json:"hasNext"`
	HasPrevious bool `json:"hasPrevious"`
}
