package services

import (
	"context"
	"net/url"
	"strings"

	"libdesk/internal/domain"
	"libdesk/internal/listing"
	"libdesk/internal/repos"
)

// Taxonomy is the fixed category tree behind the public navigation.
var Taxonomy = []domain.Category{
	{Name: "Văn Học", SubCategories: []string{
		"Văn Học Đương Đại", "Văn Học Kinh Điển/Cổ Điển", "Văn Học Các Nước",
		"Truyện Ngắn/Tản Văn", "Tình Cảm/Lãng Mạn", "Thơ Văn",
		"Truyện Trinh Thám/Viễn Tưởng/Kinh Dị", "Hồi Ký/Bút Ký/Chân Dung Nhân Vật",
		"Phóng Sự/Ký Sự", "Lý Luận/Nghiên Cứu/Phê Bình", "Tục Ngữ/Ca Dao/Truyện Cười",
		"Truyện Lịch Sử", "Truyện Kiếm Hiệp", "Truyện Trinh Thám",
		"Truyện Viễn Tưởng", "Truyện Kinh Dị", "Light Novel",
	}},
	{Name: "Kinh Tế/Kinh Doanh", SubCategories: []string{
		"Quản Trị Kinh Doanh", "Marketing/Bán Hàng", "Ngân Hàng/Tài Chính/Kế Toán",
		"Quản Trị Nhân Sự/Tuyển Dụng", "Nhân Vật/Bài Học Kinh Doanh",
		"Phân tích - Môi trường kinh tế", "Bất Động Sản/Chứng Khoán/Đầu Tư",
		"Ngoại Thương", "Khởi Nghiệp/Làm Giàu",
	}},
	{Name: "Kỹ Năng/Sống Đẹp", SubCategories: []string{
		"Kỹ Năng Sống", "Kỹ Năng Công Việc", "Sống Đẹp",
	}},
	{Name: "Thiếu Nhi", SubCategories: []string{
		"Văn Học Thiếu Nhi", "Kiến Thức Bách Khoa", "Truyện Cổ Tích/Ngụ Ngôn",
		"Sách Tranh - Ehon", "Tô Màu/Luyện Chữ/Cắt Dán", "Đạo Đức - Kỹ Năng Sống",
		"Sách Thiếu Nhi Khác",
	}},
	{Name: "Truyện Tranh/Manga", SubCategories: []string{
		"Manga", "Comic",
	}},
	{Name: "Sách Giáo Khoa", SubCategories: []string{
		"Lớp 1", "Lớp 2", "Lớp 3", "Lớp 4", "Lớp 5", "Lớp 6",
		"Lớp 7", "Lớp 8", "Lớp 9", "Lớp 10", "Lớp 11", "Lớp 12",
	}},
}

// Browse is a resolved public category page. Sub is empty on a category page.
type Browse struct {
	Category domain.Category
	Sub      string
}

type CatalogService struct {
	Books *repos.BookRepo
}

func NewCatalogService(books *repos.BookRepo) *CatalogService {
	return &CatalogService{Books: books}
}

func (s *CatalogService) ListCategories() []domain.Category {
	return Taxonomy
}

// Resolve matches path segments against the taxonomy, ignoring case.
// Segments may still be percent-encoded.
func (s *CatalogService) Resolve(category, sub string) (Browse, error) {
	category, sub = unescape(category), unescape(sub)
	for _, c := range Taxonomy {
		if listing.Fold(c.Name) != listing.Fold(category) {
			continue
		}
		if sub == "" {
			return Browse{Category: c}, nil
		}
		for _, name := range c.SubCategories {
			if listing.Fold(name) == listing.Fold(sub) {
				return Browse{Category: c, Sub: name}, nil
			}
		}
		return Browse{Category: c}, ErrSubcategoryNotFound
	}
	return Browse{}, ErrCategoryNotFound
}

// BooksIn lists backend books filed under the subcategory.
func (s *CatalogService) BooksIn(ctx context.Context, sub string) ([]domain.Book, error) {
	all, err := s.Books.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Book
	for _, b := range all {
		for _, c := range b.Categories {
			if containsFold(c.SubCategories, sub) {
				out = append(out, b)
				break
			}
		}
	}
	return out, nil
}

// Path is the public URL of a category or subcategory page.
func Path(category, sub string) string {
	p := "/category/" + url.PathEscape(strings.ToLower(category))
	if sub != "" {
		p += "/" + url.PathEscape(strings.ToLower(sub))
	}
	return p
}

func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if listing.Fold(v) == listing.Fold(s) {
			return true
		}
	}
	return false
}
