package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goodBook() BookInput {
	return BookInput{
		Title:         "Dune",
		Author:        "Frank Herbert, , Brian Herbert ",
		Year:          "1965",
		Quantity:      "3",
		BigCategory:   "Văn Học",
		SmallCategory: "Truyện Viễn Tưởng",
		Img:           "https://img.example.test/dune.jpg",
		Nxb:           "Chilton",
	}
}

func TestBook_BuildsNestedShape(t *testing.T) {
	b, errs := Book(goodBook())
	require.True(t, errs.OK(), errs)
	assert.Equal(t, []string{"Frank Herbert", "Brian Herbert"}, b.Authors)
	assert.Equal(t, 1965, b.PublicationYear)
	assert.Equal(t, 3, b.Quantity)
	require.Len(t, b.Categories, 1)
	assert.Equal(t, "Văn Học", b.Categories[0].Name)
	assert.Equal(t, []string{"Truyện Viễn Tưởng"}, b.Categories[0].SubCategories)
	assert.Empty(t, b.Code)
}

func TestBook_CustomCategories(t *testing.T) {
	in := goodBook()
	in.BigCategory, in.CustomBig = Custom, "Khoa Học"
	in.SmallCategory, in.CustomSmall = Custom, "Vật Lý"
	b, errs := Book(in)
	require.True(t, errs.OK(), errs)
	assert.Equal(t, "Khoa Học", b.Categories[0].Name)
	assert.Equal(t, []string{"Vật Lý"}, b.Categories[0].SubCategories)

	in.CustomSmall = "  "
	_, errs = Book(in)
	assert.Contains(t, errs, "smallCategory")
}

func TestBook_RejectsNegativesAndBadURL(t *testing.T) {
	in := goodBook()
	in.Quantity = "-1"
	in.Year = "-5"
	in.Img = "img/dune.jpg"
	in.Author = " , "
	_, errs := Book(in)
	assert.Equal(t, "Số lượng không được âm", errs["quantity"])
	assert.Equal(t, "Năm xuất bản không được âm", errs["publicationYear"])
	assert.Contains(t, errs, "img")
	assert.Contains(t, errs, "author")
	assert.NotContains(t, errs, "title")
}

func TestImageURL(t *testing.T) {
	for _, s := range []string{"https://a.test/x.png", "http://a.test"} {
		_, ok := ImageURL(s)
		assert.True(t, ok, s)
	}
	for _, s := range []string{"", "ftp://a.test/x", "//a.test/x", "a.test/x.png", "https://"} {
		_, ok := ImageURL(s)
		assert.False(t, ok, s)
	}
}

func TestReader(t *testing.T) {
	m, errs := Reader(ReaderInput{Name: " Nguyễn Văn Ánh ", Email: "anh@example.test", Phone: "0901234567", Address: "12 Lê Lợi"})
	require.True(t, errs.OK(), errs)
	assert.Equal(t, "Nguyễn Văn Ánh", m.Name)

	_, errs = Reader(ReaderInput{Name: "R2D2", Email: "not-an-email", Phone: "12345", Address: "Huế"})
	assert.Equal(t, "Tên chỉ được chứa chữ cái và khoảng trắng", errs["name"])
	assert.Equal(t, "Email không hợp lệ", errs["email"])
	assert.Contains(t, errs, "phoneNumber")
	assert.Contains(t, errs, "address")
}

func TestPhone(t *testing.T) {
	for s, want := range map[string]bool{
		"0901234567":   true,
		"09012345678":  true,
		"090123456":    false,
		"090123456789": false,
		"09012a4567":   false,
	} {
		_, ok := Phone(s)
		assert.Equal(t, want, ok, s)
	}
}

func TestBorrow(t *testing.T) {
	out, errs := Borrow(BorrowInput{Name: " Nguyen Van A ", Phone: "0901234567", Title: " Dune "})
	require.True(t, errs.OK())
	assert.Equal(t, BorrowInput{Name: "Nguyen Van A", Phone: "0901234567", Title: "Dune"}, out)

	_, errs = Borrow(BorrowInput{})
	assert.Len(t, errs, 3)
}

func TestMemberEdit(t *testing.T) {
	_, errs := MemberEdit(MemberEditInput{Name: "A", Email: "a@b.co", Phone: "1", Address: "x", BooksBorrowed: "-1"})
	assert.Equal(t, Errors{"booksBorrowed": "Số sách đang mượn không được âm"}, errs)
}

func TestChangePassword(t *testing.T) {
	assert.True(t, ChangePassword(PasswordInput{Old: "old", New: "Secret456", Confirm: "Secret456"}).OK())
	errs := ChangePassword(PasswordInput{Old: "old", New: "Secret456", Confirm: "Secret457"})
	assert.Contains(t, errs, "confirmPassword")
}

func TestErrorsKeepFirstMessage(t *testing.T) {
	errs := Errors{}
	errs.Add("name", "first")
	errs.Add("name", "second")
	assert.Equal(t, "first", errs["name"])
}

func TestPageAndQ(t *testing.T) {
	assert.Equal(t, 1, Page("0"))
	assert.Equal(t, 1, Page("abc"))
	assert.Equal(t, 4, Page(" 4 "))
	assert.Equal(t, "dune", Q("  dune "))
}
