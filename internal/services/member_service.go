package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"libdesk/internal/domain"
	"libdesk/internal/listing"
	"libdesk/internal/repos"
)

const ReaderPageSize = 10

var ReaderSorts = []string{"name-asc", "name-desc"}

const DefaultReaderSort = "name-asc"

// memberCodePrefix keeps new codes in the backend's 24 hex character id shape.
const memberCodePrefix = "672a281174f8"

func newMemberCode() string {
	id := uuid.New()
	return memberCodePrefix + hex.EncodeToString(id[:6])
}

type ReaderQuery struct {
	Term string
	Sort string
	Page int
}

type MemberService struct {
	Members *repos.MemberRepo
}

func NewMemberService(members *repos.MemberRepo) *MemberService {
	return &MemberService{Members: members}
}

func readerFields(m domain.Member) []string {
	return []string{m.Name, m.Email, m.Phone}
}

func (s *MemberService) List(ctx context.Context, q ReaderQuery) (listing.Page[domain.Member], error) {
	all, err := s.Members.List(ctx)
	if err != nil {
		return listing.Paginate[domain.Member](nil, 1, ReaderPageSize), err
	}
	rows := listing.Filter(all, q.Term, readerFields)
	name := func(m domain.Member) string { return m.Name }
	switch q.Sort {
	case "name-asc":
		rows = listing.Sort(rows, listing.ByText(name, false))
	case "name-desc":
		rows = listing.Sort(rows, listing.ByText(name, true))
	}
	return listing.Paginate(rows, q.Page, ReaderPageSize), nil
}

func (s *MemberService) Get(ctx context.Context, memberID string) (domain.Member, error) {
	all, err := s.Members.List(ctx)
	if err != nil {
		return domain.Member{}, err
	}
	for _, m := range all {
		if m.MemberID == memberID {
			return m, nil
		}
	}
	return domain.Member{}, fmt.Errorf("member %q: %w", memberID, ErrMemberNotFound)
}

// FindByName scans every member for a trimmed, case-insensitive name match.
func (s *MemberService) FindByName(ctx context.Context, name string) (domain.Member, error) {
	all, err := s.Members.List(ctx)
	if err != nil {
		return domain.Member{}, err
	}
	want := listing.Fold(strings.TrimSpace(name))
	for _, m := range all {
		if listing.Fold(strings.TrimSpace(m.Name)) == want {
			return m, nil
		}
	}
	return domain.Member{}, fmt.Errorf("member %q: %w", name, ErrMemberNotFound)
}

// Create assigns the member code; the backend keys updates and deletes on it.
func (s *MemberService) Create(ctx context.Context, m domain.Member) (domain.Member, error) {
	m.ID, m.MemberID = "", newMemberCode()
	m.Transactions = []string{"BORROW"}
	m.BooksBorrowed = 0
	return s.Members.Create(ctx, m)
}

// Update sends the changed fields only; no change means no call.
func (s *MemberService) Update(ctx context.Context, cur, next domain.Member) (domain.Member, error) {
	patch := map[string]any{}
	if next.Name != cur.Name {
		patch["name"] = next.Name
	}
	if next.Email != cur.Email {
		patch["email"] = next.Email
	}
	if next.Phone != cur.Phone {
		patch["phoneNumber"] = next.Phone
	}
	if next.Address != cur.Address {
		patch["address"] = next.Address
	}
	if next.BooksBorrowed != cur.BooksBorrowed {
		patch["booksBorrowed"] = next.BooksBorrowed
	}
	if len(patch) == 0 {
		return cur, nil
	}
	return s.Members.Update(ctx, cur.MemberID, patch)
}

func (s *MemberService) Delete(ctx context.Context, memberID string) error {
	return s.Members.Delete(ctx, memberID)
}
