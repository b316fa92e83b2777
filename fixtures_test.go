package figoql

import (
	"io"
	"log/slog"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type User struct {
	ID        uint
	Name      string
	FirstName string
	LastName  string
	Email     string
	Age       int
	Role      string
	DeletedAt gorm.DeletedAt
	Posts     []Post
}

func (u *User) AppendAttribute(name string) (any, bool) {
	switch name {
	case "fullName":
		return u.FirstName + " " + u.LastName, true
	case "isAdult":
		return u.Age >= 18, true
	}
	return nil, false
}

func (User) QueryScopes() map[string]ScopeFunc {
	return map[string]ScopeFunc{
		"olderThan": func(db *gorm.DB, values ...any) *gorm.DB {
			if len(values) == 0 {
				return db
			}
			return db.Where("age > ?", values[0])
		},
	}
}

type Post struct {
	ID       uint
	UserID   uint
	User     *User
	Title    string
	Body     string
	Comments []Comment
}

type Comment struct {
	ID     uint
	PostID uint
	Body   string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&User{}, &Post{}, &Comment{}))

	users := []User{
		{ID: 1, Name: "Alice", FirstName: "Alice", LastName: "Smith", Email: "alice@example.com", Age: 30, Role: "admin"},
		{ID: 2, Name: "Bob", FirstName: "Bob", LastName: "Jones", Email: "bob@example.com", Age: 25, Role: "user"},
		{ID: 3, Name: "Foo Fighter", FirstName: "Dave", LastName: "Grohl", Email: "foo@example.com", Age: 41, Role: "user"},
		{ID: 4, Name: "Deleted", FirstName: "Del", LastName: "Eted", Email: "gone@example.com", Age: 50, Role: "admin"},
	}
	require.NoError(t, db.Create(&users).Error)
	require.NoError(t, db.Delete(&User{}, 4).Error)

	posts := []Post{
		{ID: 1, UserID: 1, Title: "Hello", Body: "first"},
		{ID: 2, UserID: 1, Title: "World", Body: "second"},
		{ID: 3, UserID: 2, Title: "Bob post", Body: "third"},
	}
	require.NoError(t, db.Create(&posts).Error)

	comments := []Comment{
		{ID: 1, PostID: 1, Body: "nice"},
		{ID: 2, PostID: 1, Body: "great"},
		{ID: 3, PostID: 3, Body: "meh"},
	}
	require.NoError(t, db.Create(&comments).Error)
	return db
}

// newQuery builds a Request from a raw query string such as "sort=-name&filter[role]=admin".
func newQuery(t *testing.T, raw string, opts ...RequestOption) *Request {
	t.Helper()
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	return NewRequest(values, opts...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func userNames(rs *ResultSet[User]) []string {
	names := make([]string, 0, rs.Len())
	for _, u := range rs.Models() {
		names = append(names, u.Name)
	}
	return names
}
