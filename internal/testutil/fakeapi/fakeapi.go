// Package fakeapi runs an in-process stand-in for the library REST backend.
// It keeps its data in memory, counts calls per route and can be told to fail
// a route, which is enough to drive the repos, services and handlers in tests.
package fakeapi

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"

	"libdesk/internal/domain"
	"libdesk/internal/repos"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Account struct {
	Password  string
	Librarian domain.Librarian
}

type failure struct {
	status int
	msg    string
}

type Server struct {
	URL string

	mu       sync.Mutex
	Books    []domain.Book
	Members  []domain.Member
	Txs      []domain.Transaction
	Mains    []string
	Subs     map[string][]string
	Accounts map[string]*Account
	OTPs     map[string]string
	Weekly   map[domain.Status][]domain.StatPoint
	calls    map[string]int
	bodies   map[string][]byte
	fail     map[string]failure
	seq      int
	app      *fiber.App
}

// New starts an empty backend that stops when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		Subs:     map[string][]string{},
		Accounts: map[string]*Account{},
		OTPs:     map[string]string{},
		Weekly:   map[domain.Status][]domain.StatPoint{},
		calls:    map[string]int{},
		bodies:   map[string][]byte{},
		fail:     map[string]failure{},
	}
	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
	s.routes()

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("fakeapi listen: %v", err)
	}
	go func() { _ = s.app.Listener(ln) }()
	t.Cleanup(func() { _ = s.app.ShutdownWithTimeout(time.Second) })
	s.URL = "http://" + ln.Addr().String()
	return s
}

// Seeded starts a backend with a small library in it.
func Seeded(t testing.TB) *Server {
	s := New(t)
	s.Seed()
	return s
}

func (s *Server) Seed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Mains = []string{"Văn Học", "Truyện Tranh/Manga", "Kinh Tế/Kinh Doanh"}
	s.Subs = map[string][]string{
		"Văn Học":            {"Văn Học Đương Đại", "Truyện Trinh Thám"},
		"Truyện Tranh/Manga": {"Manga", "Comic"},
		"Kinh Tế/Kinh Doanh": {"Marketing/Bán Hàng", "Khởi Nghiệp/Làm Giàu"},
	}
	s.Books = []domain.Book{
		{ID: "b-1", Code: "B001", Title: "Dune", Authors: []string{"Frank Herbert"}, PublicationYear: 1965,
			Categories: []domain.BookCategory{{Name: "Văn Học", SubCategories: []string{"Truyện Trinh Thám"}}},
			Quantity: 2, Available: true, Image: "https://img.example.test/dune.jpg", Publisher: "Chilton"},
		{ID: "b-2", Code: "B002", Title: "Số Đỏ", Authors: []string{"Vũ Trọng Phụng"}, PublicationYear: 1936,
			Categories: []domain.BookCategory{{Name: "Văn Học", SubCategories: []string{"Văn Học Đương Đại"}}},
			Quantity: 0, Available: false, Image: "https://img.example.test/sodo.jpg", Publisher: "Kim Đồng"},
		{ID: "b-3", Code: "B003", Title: "One Piece", Authors: []string{"Eiichiro Oda"}, PublicationYear: 1997,
			Categories: []domain.BookCategory{{Name: "Truyện Tranh/Manga", SubCategories: []string{"Manga"}}},
			Quantity: 5, Available: true, Image: "https://img.example.test/op.jpg", Publisher: "Kim Đồng"},
	}
	s.Members = []domain.Member{
		{ID: "m-1", MemberID: "MB001", Name: "Nguyen Van A", Email: "a@example.test", Phone: "0901234567", Address: "12 Le Loi, Hue", BooksBorrowed: 1},
		{ID: "m-2", MemberID: "MB002", Name: "Tran Thi B", Email: "b@example.test", Phone: "0912345678", Address: "34 Tran Phu, Da Nang"},
	}
	s.Txs = []domain.Transaction{
		{ID: "t-1", MemberID: "MB001", MemberName: "Nguyen Van A", Phone: "0901234567", BookID: "b-1", BookTitle: "Dune",
			Author: "Frank Herbert", TransactionDate: "2024-05-01T08:00:00Z", DueDate: "2024-05-15T08:00:00Z", Status: domain.StatusBorrowed},
		{ID: "t-2", MemberID: "MB002", MemberName: "Tran Thi B", Phone: "0912345678", BookID: "b-3", BookTitle: "One Piece",
			Author: "Eiichiro Oda", TransactionDate: "2024-04-01T08:00:00Z", DueDate: "2024-04-15T08:00:00Z", Status: domain.StatusReturned},
	}
	s.Accounts = map[string]*Account{
		"admin": {Password: "Secret123", Librarian: domain.Librarian{ID: "lib-1", Username: "admin", Name: "Thủ Thư"}},
	}
	s.Weekly = map[domain.Status][]domain.StatPoint{
		domain.StatusBorrowed: {{Date: "2024-05-01", Count: 3}, {Date: "2024-05-02", Count: 1}},
		domain.StatusReturned: {{Date: "2024-05-01", Count: 2}},
	}
	s.seq = 100
}

// Calls reports how often a route was hit, e.g. Calls("POST /books").
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// WriteCalls counts every POST, PUT and DELETE seen so far.
func (s *Server) WriteCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, v := range s.calls {
		if !strings.HasPrefix(k, "GET ") {
			n += v
		}
	}
	return n
}

// ResetCalls forgets the recorded calls and bodies.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.calls)
	clear(s.bodies)
}

// LastBody decodes the last request body sent to route.
func (s *Server) LastBody(route string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]any{}
	_ = json.Unmarshal(s.bodies[route], &out)
	return out
}

// Fail makes route answer status with msg until Heal is called.
func (s *Server) Fail(route string, status int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[route] = failure{status: status, msg: msg}
}

func (s *Server) Heal(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fail, route)
}

// Edit changes the stored data under the server lock.
func (s *Server) Edit(fn func(s *Server)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// Snapshot helpers for assertions.

func (s *Server) TxStatus(id string) domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.Txs {
		if t.ID == id {
			return t.Status
		}
	}
	return ""
}

func (s *Server) HasBook(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookIndex(id) >= 0
}

func (s *Server) Book(id string) (domain.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.bookIndex(id); i >= 0 {
		return s.Books[i], true
	}
	return domain.Book{}, false
}

func (s *Server) Member(memberID string) (domain.Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.memberIndex(memberID); i >= 0 {
		return s.Members[i], true
	}
	return domain.Member{}, false
}

func (s *Server) route(method, path string, h fiber.Handler) {
	key := method + " " + path
	s.app.Add(method, path, func(c *fiber.Ctx) error {
		s.mu.Lock()
		s.calls[key]++
		s.bodies[key] = append([]byte(nil), c.Body()...)
		f, failing := s.fail[key]
		s.mu.Unlock()
		if failing {
			return c.Status(f.status).JSON(fiber.Map{"message": f.msg})
		}
		return h(c)
	})
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": msg})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": msg})
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *Server) bookIndex(id string) int {
	for i, b := range s.Books {
		if b.ID == id || (b.ID == "" && b.Code == id) {
			return i
		}
	}
	return -1
}

func (s *Server) memberIndex(memberID string) int {
	for i, m := range s.Members {
		if m.MemberID == memberID {
			return i
		}
	}
	return -1
}

// merge overlays a JSON patch onto v.
func merge(v any, patch []byte) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m := map[string]any{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	p := map[string]any{}
	if err := json.Unmarshal(patch, &p); err != nil {
		return err
	}
	for k, val := range p {
		m[k] = val
	}
	raw, err = json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (s *Server) routes() {
	s.route("GET", "/books", func(c *fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "0"))
		size, _ := strconv.Atoi(c.Query("size", "10"))
		if size <= 0 {
			size = 10
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		total := len(s.Books)
		pages := (total + size - 1) / size
		start := min(page*size, total)
		end := min(start+size, total)
		return c.JSON(domain.Page[domain.Book]{
			Data: append([]domain.Book{}, s.Books[start:end]...), CurrentPage: page, TotalItems: total,
			TotalPages: pages, Size: size, HasNext: page+1 < pages, HasPrevious: page > 0,
		})
	})
	s.route("GET", "/books/search", func(c *fiber.Ctx) error {
		title, author := strings.ToLower(c.Query("title")), strings.ToLower(c.Query("author"))
		s.mu.Lock()
		defer s.mu.Unlock()
		out := []domain.Book{}
		for _, b := range s.Books {
			switch {
			case title != "" && strings.Contains(strings.ToLower(b.Title), title):
				out = append(out, b)
			case author != "" && strings.Contains(strings.ToLower(strings.Join(b.Authors, ",")), author):
				out = append(out, b)
			}
		}
		return c.JSON(out)
	})
	s.route("GET", "/books/total", func(c *fiber.Ctx) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return c.JSON(len(s.Books))
	})
	s.route("GET", "/books/category-distribution", func(c *fiber.Ctx) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		out := map[string]int{}
		for _, b := range s.Books {
			for _, cat := range b.Categories {
				out[cat.Name]++
			}
		}
		return c.JSON(out)
	})
	s.route("GET", "/books/categories", func(c *fiber.Ctx) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return c.JSON(append([]string{}, s.Mains...))
	})
	s.route("PUT", "/books/categories/update", func(c *fiber.Ctx) error {
		var req struct {
			OldName string `json:"oldName"`
			NewName string `json:"newName"`
		}
		if err := json.Unmarshal(c.Body(), &req); err != nil || req.NewName == "" {
			return badRequest(c, "invalid rename")
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, m := range s.Mains {
			if m == req.OldName {
				s.Mains[i] = req.NewName
				s.Subs[req.NewName] = s.Subs[m]
				delete(s.Subs, m)
				return c.SendStatus(fiber.StatusNoContent)
			}
			for j, sub := range s.Subs[m] {
				if sub == req.OldName {
					s.Subs[m][j] = req.NewName
					return c.SendStatus(fiber.StatusNoContent)
				}
			}
		}
		return notFound(c, "Không tìm thấy danh mục")
	})
	s.route("GET", "/books/categories/:slug", func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, m := range s.Mains {
			if repos.CategorySlug(m) == slug {
				return c.JSON(append([]string{}, s.Subs[m]...))
			}
		}
		return notFound(c, "category not found")
	})
	s.route("POST", "/books", func(c *fiber.Ctx) error {
		var b domain.Book
		if err := json.Unmarshal(c.Body(), &b); err != nil || b.Title == "" {
			return badRequest(c, "invalid book")
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		b.ID = s.nextID("b")
		if b.Code == "" {
			b.Code = strings.ToUpper(b.ID)
		}
		s.Books = append(s.Books, b)
		return c.Status(fiber.StatusCreated).JSON(b)
	})
	s.route("PUT", "/books/update/:id", func(c *fiber.Ctx) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		i := s.bookIndex(c.Params("id"))
		if i < 0 {
			return notFound(c, "Không tìm thấy sách")
		}
		if err := merge(&s.Books[i], c.Body()); err != nil {
			return badRequest(c, err.Error())
		}
		return c.JSON(s.Books[i])
	})
	s.route("DELETE", "/books/delete/:id", func(c *fiber.Ctx) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		i := s.bookIndex(c.Params("id"))
		if i < 0 {
			return notFound(c, "Không tìm thấy sách")
		}
		s.Books = append(s.Books[:i], s.Books[i+1:]...)
		return c.SendStatus(fiber.StatusNoContent)
	})

	s.route("GET", "/members", func(c *fiber.Ctx) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return c.JSON(append([]domain.Member{}, s.Members...))
	})
	s.route("GET", "/members/count", func(c *fiber.Ctx) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return c.JSON(len(s.Members))
	})
	s.route("POST", "/members", func(c *fiber.Ctx) error {
		var m domain.Member
		if err := json.Unmarshal(c.Body(), &m); err != nil || m.Name == "" || m.MemberID == "" {
			return badRequest(c, "invalid member")
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		m.ID = s.nextID("m")
		s.Members = append(s.Members, m)
		return c.Status(fiber.StatusCreated).JSON(m)
	})
	s.route("PUT", "/members/update/:memberId", func(c *fiber.Ctx) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		i := s.memberIndex(c.Params("memberId"))
		if i < 0 {
			return notFound(c, "Không tìm thấy người đọc")
		}
		if err := merge(&s.Members[i], c.Body()); err != nil {
			return badRequest(c, err.Error())
		}
		return c.JSON(s.Members[i])
	})
	s.route("DELETE", "/members/delete/:memberId", func(c *fiber.Ctx) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		i := s.memberIndex(c.Params("memberId"))
		if i < 0 {
			return notFound(c, "Không tìm thấy người đọc")
		}
		s.Members = append(s.Members[:i], s.Members[i+1:]...)
		return c.SendStatus(fiber.StatusNoContent)
	})

	s.route("GET", "/transactions/statistics", func(c *fiber.Ctx) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		out := s.Weekly[domain.Status(c.Query("transactionType"))]
		if out == nil {
			out = []domain.StatPoint{}
		}
		return c.JSON(out)
	})
	s.route("GET", "/transactions/count/:status", func(c *fiber.Ctx) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return c.JSON(len(s.txsWith(domain.Status(c.Params("status")))))
	})
	s.route("GET", "/transactions/:status", func(c *fiber.Ctx) error {
		st := domain.Status(c.Params("status"))
		switch st {
		case domain.StatusBorrowed, domain.StatusReturned, domain.StatusRenewed:
		default:
			return notFound(c, "unknown collection")
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return c.JSON(s.txsWith(st))
	})
	s.route("POST", "/transactions/borrow", func(c *fiber.Ctx) error {
		var req repos.BorrowRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return badRequest(c, "invalid request")
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		mi := -1
		for i, m := range s.Members {
			if strings.EqualFold(m.Name, req.Name) && m.Phone == req.Phone {
				mi = i
			}
		}
		if mi < 0 {
			return notFound(c, "Không tìm thấy người đọc")
		}
		bi := -1
		for i, b := range s.Books {
			if strings.EqualFold(b.Title, req.Title) {
				bi = i
			}
		}
		if bi < 0 {
			return notFound(c, "Không tìm thấy sách")
		}
		if s.Books[bi].Quantity <= 0 {
			return badRequest(c, "Sách đã hết")
		}
		s.Books[bi].Quantity--
		s.Books[bi].Available = s.Books[bi].Quantity > 0
		s.Members[mi].BooksBorrowed++
		now := time.Now().UTC()
		s.Txs = append(s.Txs, domain.Transaction{
			ID: s.nextID("t"), MemberID: s.Members[mi].MemberID, MemberName: s.Members[mi].Name, Phone: s.Members[mi].Phone,
			BookID: s.Books[bi].ID, BookTitle: s.Books[bi].Title, Author: strings.Join(s.Books[bi].Authors, ", "),
			TransactionDate: now.Format(time.RFC3339), DueDate: now.AddDate(0, 0, 14).Format(time.RFC3339), Status: domain.StatusBorrowed,
		})
		return c.SendStatus(fiber.StatusCreated)
	})
	s.route("POST", "/transactions/return", func(c *fiber.Ctx) error {
		return s.act(c, domain.StatusReturned)
	})
	s.route("POST", "/transactions/renew", func(c *fiber.Ctx) error {
		return s.act(c, domain.StatusRenewed)
	})

	s.route("POST", "/librarians/login", func(c *fiber.Ctx) error {
		var req struct{ Username, Password string }
		_ = json.Unmarshal(c.Body(), &req)
		s.mu.Lock()
		defer s.mu.Unlock()
		a, ok := s.Accounts[req.Username]
		if !ok || a.Password != req.Password {
			return notFound(c, "Invalid username or password")
		}
		return c.JSON(a.Librarian)
	})
	s.route("POST", "/librarians/change", func(c *fiber.Ctx) error {
		var req struct {
			Username    string `json:"username"`
			OldPassword string `json:"oldPassword"`
			NewPassword string `json:"newPassword"`
		}
		_ = json.Unmarshal(c.Body(), &req)
		s.mu.Lock()
		defer s.mu.Unlock()
		a, ok := s.Accounts[req.Username]
		if !ok || a.Password != req.OldPassword {
			return c.Status(fiber.StatusBadRequest).SendString("Mật khẩu cũ không đúng")
		}
		a.Password = req.NewPassword
		return c.SendString("Đổi mật khẩu thành công")
	})
	s.route("POST", "/librarians/send-otp", func(c *fiber.Ctx) error {
		var req struct{ Username string }
		_ = json.Unmarshal(c.Body(), &req)
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.Accounts[req.Username]; !ok {
			return c.Status(fiber.StatusNotFound).SendString("Không tìm thấy tài khoản")
		}
		s.OTPs[req.Username] = "123456"
		return c.SendStatus(fiber.StatusOK)
	})
	s.route("POST", "/librarians/reset", func(c *fiber.Ctx) error {
		var req struct {
			Username    string `json:"username"`
			OTP         string `json:"otp"`
			NewPassword string `json:"newPassword"`
		}
		_ = json.Unmarshal(c.Body(), &req)
		s.mu.Lock()
		defer s.mu.Unlock()
		a, ok := s.Accounts[req.Username]
		if !ok || s.OTPs[req.Username] == "" || s.OTPs[req.Username] != req.OTP {
			return c.Status(fiber.StatusBadRequest).SendString("Mã OTP không hợp lệ")
		}
		a.Password = req.NewPassword
		delete(s.OTPs, req.Username)
		return c.SendStatus(fiber.StatusOK)
	})
}

func (s *Server) txsWith(st domain.Status) []domain.Transaction {
	out := []domain.Transaction{}
	for _, t := range s.Txs {
		if t.Status == st {
			out = append(out, t)
		}
	}
	return out
}

func (s *Server) act(c *fiber.Ctx, to domain.Status) error {
	var req repos.ActionRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid request")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.Txs {
		if t.ID != req.TransactionID {
			continue
		}
		if t.Status != domain.StatusBorrowed {
			return badRequest(c, "Giao dịch không ở trạng thái đang mượn")
		}
		if req.Phone != t.Phone {
			return badRequest(c, "Số điện thoại không khớp")
		}
		s.Txs[i].Status = to
		if to == domain.StatusRenewed {
			if due, err := time.Parse(time.RFC3339, t.DueDate); err == nil {
				s.Txs[i].DueDate = due.AddDate(0, 0, 14).Format(time.RFC3339)
			}
		}
		if to == domain.StatusReturned {
			if bi := s.bookIndex(t.BookID); bi >= 0 {
				s.Books[bi].Quantity++
				s.Books[bi].Available = true
			}
			if mi := s.memberIndex(t.MemberID); mi >= 0 && s.Members[mi].BooksBorrowed > 0 {
				s.Members[mi].BooksBorrowed--
			}
		}
		return c.SendStatus(fiber.StatusOK)
	}
	return notFound(c, "Không tìm thấy giao dịch")
}
