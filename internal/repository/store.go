package repository

import (
	"context"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Store groups the per-table repositories behind one handle so handlers
// receive a single injected data-access dependency.
type Store interface {
	Users() UserRepository
	Posts() PostRepository
	Comments() CommentRepository
	Reactions() ReactionRepository
	Communities() CommunityRepository
	Events() EventRepository
	Notifications() NotificationRepository
	Services() ServiceRepository
	Complaints() ComplaintRepository
	Donations() DonationRepository

	// Transaction runs fn against a Store bound to one database transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type store struct {
	db *gorm.DB
}

// NewStore creates a gorm-backed Store
func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Users() UserRepository                 { return NewUserRepository(s.db) }
func (s *store) Posts() PostRepository                 { return NewPostRepository(s.db) }
func (s *store) Comments() CommentRepository           { return NewCommentRepository(s.db) }
func (s *store) Reactions() ReactionRepository         { return NewReactionRepository(s.db) }
func (s *store) Communities() CommunityRepository      { return NewCommunityRepository(s.db) }
func (s *store) Events() EventRepository               { return NewEventRepository(s.db) }
func (s *store) Notifications() NotificationRepository { return NewNotificationRepository(s.db) }
func (s *store) Services() ServiceRepository           { return NewServiceRepository(s.db) }
func (s *store) Complaints() ComplaintRepository       { return NewComplaintRepository(s.db) }
func (s *store) Donations() DonationRepository         { return NewDonationRepository(s.db) }

func (s *store) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&store{db: tx})
	})
}

// arrayContains filters rows whose StringArray column holds value. Postgres
// uses the native array operator; SQLite matches the stored "{a,b}" literal.
func arrayContains(db *gorm.DB, column, value string) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Where(column+" @> ?", pq.Array([]string{value}))
	}
	return db.Where(
		column+" = ? OR "+column+" LIKE ? OR "+column+" LIKE ? OR "+column+" LIKE ?",
		"{"+value+"}", "{"+value+",%", "%,"+value+",%", "%,"+value+"}",
	)
}
