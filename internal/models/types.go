package models

import (
	"database/sql/driver"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// StringArray is stored as a PostgreSQL text[] and as its text literal
// ("{a,b}") on SQLite.
type StringArray []string

// Scan implements the sql.Scanner interface for reading from database
func (a *StringArray) Scan(value interface{}) error {
	var str string
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		*a = nil
		return nil
	}

	str = strings.TrimSuffix(strings.TrimPrefix(str, "{"), "}")
	if str == "" {
		*a = StringArray{}
		return nil
	}

	parts := strings.Split(str, ",")
	for i, p := range parts {
		parts[i] = strings.Trim(p, `"`)
	}
	*a = parts
	return nil
}

// Value implements the driver.Valuer interface for writing to database
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	return "{" + strings.Join(a, ",") + "}", nil
}

// GormDBDataType picks the column type per dialect.
func (StringArray) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// Contains reports whether s is in the array.
func (a StringArray) Contains(s string) bool {
	for _, v := range a {
		if v == s {
			return true
		}
	}
	return false
}

func generateUUID() string {
	return uuid.New().String()
}

// All returns every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Follow{},
		&Community{},
		&CommunityMember{},
		&Post{},
		&Comment{},
		&Reaction{},
		&Notification{},
		&Event{},
		&EventRSVP{},
		&Service{},
		&Complaint{},
		&Donation{},
	}
}
