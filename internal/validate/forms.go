package validate

import (
	"strconv"
	"strings"

	"libdesk/internal/domain"
)

// Custom is the select value that switches a category field to free text.
const Custom = "custom"

// BookInput is the raw book form. Field names follow the form inputs.
type BookInput struct {
	Title         string `form:"title"`
	Description   string `form:"description"`
	Author        string `form:"author"`
	Year          string `form:"publicationYear"`
	Quantity      string `form:"quantity"`
	BigCategory   string `form:"bigCategory"`
	CustomBig     string `form:"customBigCategory"`
	SmallCategory string `form:"smallCategory"`
	CustomSmall   string `form:"customSmallCategory"`
	Img           string `form:"img"`
	Nxb           string `form:"nxb"`
}

// Main is the chosen main category, free text when "custom" is picked.
func (in BookInput) Main() string {
	if in.BigCategory == Custom {
		return in.CustomBig
	}
	return in.BigCategory
}

func (in BookInput) Sub() string {
	if in.SmallCategory == Custom {
		return in.CustomSmall
	}
	return in.SmallCategory
}

// BookFromBook seeds the edit form from a stored book.
func BookFromBook(b domain.Book) BookInput {
	main, sub := b.MainCategory()
	return BookInput{
		Title:         b.Title,
		Description:   b.Description,
		Author:        joinComma(b.Authors),
		Year:          itoa(b.PublicationYear),
		Quantity:      itoa(b.Quantity),
		BigCategory:   main,
		SmallCategory: sub,
		Img:           b.Image,
		Nxb:           b.Publisher,
	}
}

// Book checks the form and builds the nested shape the backend takes.
func Book(in BookInput) (domain.Book, Errors) {
	errs := Errors{}
	var b domain.Book
	var ok bool

	if b.Title, ok = Required(in.Title); !ok {
		errs.Add("title", "Tên sách không được để trống")
	}
	if b.Authors, ok = Authors(in.Author); !ok {
		errs.Add("author", "Tác giả không được để trống")
	}
	if b.PublicationYear, ok = NonNegative(in.Year); !ok {
		errs.Add("publicationYear", "Năm xuất bản không được âm")
	}
	main, okMain := Required(in.Main())
	if !okMain {
		errs.Add("bigCategory", "Danh mục lớn không được để trống")
	}
	sub, okSub := Required(in.Sub())
	if !okSub {
		errs.Add("smallCategory", "Danh mục nhỏ không được để trống")
	}
	if b.Quantity, ok = NonNegative(in.Quantity); !ok {
		errs.Add("quantity", "Số lượng không được âm")
	}
	if b.Image, ok = ImageURL(in.Img); !ok {
		errs.Add("img", "URL hình ảnh không hợp lệ")
	}
	if b.Publisher, ok = Required(in.Nxb); !ok {
		errs.Add("nxb", "Nhà xuất bản không được để trống")
	}
	if !errs.OK() {
		return domain.Book{}, errs
	}
	b.Description, _ = Required(in.Description)
	b.Categories = []domain.BookCategory{{Name: main, SubCategories: []string{sub}}}
	b.Available = true
	return b, errs
}

type ReaderInput struct {
	Name    string `form:"name"`
	Email   string `form:"email"`
	Phone   string `form:"phoneNumber"`
	Address string `form:"address"`
}

func Reader(in ReaderInput) (domain.Member, Errors) {
	errs := Errors{}
	var m domain.Member
	var ok bool

	if m.Name, ok = Required(in.Name); !ok {
		errs.Add("name", "Tên không được để trống")
	} else if _, ok = PersonName(m.Name); !ok {
		errs.Add("name", "Tên chỉ được chứa chữ cái và khoảng trắng")
	}
	if m.Email, ok = Required(in.Email); !ok {
		errs.Add("email", "Email không được để trống")
	} else if _, ok = Email(m.Email); !ok {
		errs.Add("email", "Email không hợp lệ")
	}
	if m.Phone, ok = Phone(in.Phone); !ok {
		errs.Add("phoneNumber", "Số điện thoại phải có 10-11 chữ số")
	}
	if m.Address, ok = Required(in.Address); !ok || len([]rune(m.Address)) < 5 {
		errs.Add("address", "Địa chỉ phải có ít nhất 5 ký tự")
	}
	if !errs.OK() {
		return domain.Member{}, errs
	}
	return m, errs
}

// MemberEditInput is the reader edit form.
type MemberEditInput struct {
	Name          string `form:"name"`
	Email         string `form:"email"`
	Phone         string `form:"phoneNumber"`
	Address       string `form:"address"`
	BooksBorrowed string `form:"booksBorrowed"`
}

func MemberEditFromMember(m domain.Member) MemberEditInput {
	return MemberEditInput{
		Name:          m.Name,
		Email:         m.Email,
		Phone:         m.Phone,
		Address:       m.Address,
		BooksBorrowed: itoa(m.BooksBorrowed),
	}
}

// MemberEdit is looser than Reader: the stored name may predate the
// letters-only rule.
func MemberEdit(in MemberEditInput) (domain.Member, Errors) {
	errs := Errors{}
	var m domain.Member
	var ok bool

	if m.Name, ok = Required(in.Name); !ok {
		errs.Add("name", "Tên không được để trống")
	}
	if m.Email, ok = Email(in.Email); !ok {
		errs.Add("email", "Email không hợp lệ")
	}
	if m.Phone, ok = Required(in.Phone); !ok {
		errs.Add("phoneNumber", "Số điện thoại không được để trống")
	}
	if m.Address, ok = Required(in.Address); !ok {
		errs.Add("address", "Địa chỉ không được để trống")
	}
	if m.BooksBorrowed, ok = NonNegative(in.BooksBorrowed); !ok {
		errs.Add("booksBorrowed", "Số sách đang mượn không được âm")
	}
	if !errs.OK() {
		return domain.Member{}, errs
	}
	return m, errs
}

type BorrowInput struct {
	Name  string `form:"name"`
	Phone string `form:"phoneNumber"`
	Title string `form:"title"`
}

func Borrow(in BorrowInput) (BorrowInput, Errors) {
	errs := Errors{}
	var out BorrowInput
	var ok bool

	if out.Name, ok = Required(in.Name); !ok {
		errs.Add("name", "Tên người dùng không được để trống")
	}
	if out.Phone, ok = Phone(in.Phone); !ok {
		errs.Add("phoneNumber", "Số điện thoại phải có 10-11 chữ số")
	}
	if out.Title, ok = Required(in.Title); !ok {
		errs.Add("title", "Tên sách không được để trống")
	}
	return out, errs
}

type PasswordInput struct {
	Old     string `form:"oldPassword"`
	New     string `form:"newPassword"`
	Confirm string `form:"confirmPassword"`
}

func ChangePassword(in PasswordInput) Errors {
	errs := Errors{}
	if in.Old == "" {
		errs.Add("oldPassword", "Vui lòng nhập mật khẩu cũ")
	}
	if !Password(in.New) {
		errs.Add("newPassword", "Mật khẩu mới phải có từ 6 đến 64 ký tự")
	}
	if in.New != in.Confirm {
		errs.Add("confirmPassword", "Mật khẩu xác nhận không khớp")
	}
	return errs
}

type ResetInput struct {
	Username    string `form:"username"`
	OTP         string `form:"otp"`
	NewPassword string `form:"newPassword"`
}

func Reset(in ResetInput) (ResetInput, Errors) {
	errs := Errors{}
	var out ResetInput
	var ok bool
	if out.Username, ok = Required(in.Username); !ok {
		errs.Add("username", "Vui lòng nhập tên đăng nhập")
	}
	if out.OTP, ok = Required(in.OTP); !ok {
		errs.Add("otp", "Vui lòng nhập mã OTP")
	}
	out.NewPassword = in.NewPassword
	if !Password(in.NewPassword) {
		errs.Add("newPassword", "Mật khẩu mới phải có từ 6 đến 64 ký tự")
	}
	return out, errs
}

func itoa(n int) string { return strconv.Itoa(n) }

func joinComma(ss []string) string { return strings.Join(ss, ", ") }
