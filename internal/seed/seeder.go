package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/repository"
	"github.com/communehq/commune/internal/richtext"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// SeedPassword is the password of every seeded account.
const SeedPassword = "password123"

// Sizes controls how much data a seeding run creates.
type Sizes struct {
	Users       int
	Communities int
	Posts       int
	Comments    int
	Reactions   int
}

// DevSizes is a populated development database.
var DevSizes = Sizes{Users: 50, Communities: 8, Posts: 300, Comments: 900, Reactions: 1500}

// Seeder handles database seeding operations
type Seeder struct {
	db    *gorm.DB
	store repository.Store
	rng   *rand.Rand
}

// NewSeeder creates a seeder. The same seed yields the same shape of data.
func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	_ = gofakeit.Seed(seed)
	return &Seeder{
		db:    db,
		store: repository.NewStore(db),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Result counts what a run created.
type Result struct {
	Users       []*models.User
	Communities []*models.Community
	Posts       []*models.Post
	Comments    int
	Reactions   int
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev(ctx context.Context) (*Result, error) {
	return s.Seed(ctx, DevSizes)
}

// SeedTest creates the fixed accounts used by client end-to-end tests plus a
// small amount of random content around them.
func (s *Seeder) SeedTest(ctx context.Context) (*Result, error) {
	fixed := []struct {
		username    string
		displayName string
	}{
		{"alice", "Alice Smith"},
		{"bob", "Bob Johnson"},
		{"charlie", "Charlie Brown"},
		{"diana", "Diana Prince"},
		{"eve", "Eve Wilson"},
	}

	hash, err := hashPassword()
	if err != nil {
		return nil, err
	}
	res := &Result{}
	for _, f := range fixed {
		existing, err := s.store.Users().GetUserByUsername(ctx, f.username)
		if err == nil {
			res.Users = append(res.Users, existing)
			continue
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		user := &models.User{
			Email:        f.username + "@example.com",
			Username:     f.username,
			DisplayName:  f.displayName,
			PasswordHash: &hash,
			AvatarURL:    avatarURL(f.username),
		}
		if err := s.store.Users().CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create test user %s: %w", f.username, err)
		}
		res.Users = append(res.Users, user)
	}

	sizes := Sizes{Communities: 2, Posts: 10, Comments: 20, Reactions: 20}
	if err := s.seedContent(ctx, res, sizes); err != nil {
		return nil, err
	}
	return res, nil
}

// Seed creates random users and the content around them.
func (s *Seeder) Seed(ctx context.Context, sizes Sizes) (*Result, error) {
	logger.Log.Info("Creating users...", zap.Int("count", sizes.Users))
	users, err := s.seedUsers(ctx, sizes.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}
	res := &Result{Users: users}
	if err := s.seedContent(ctx, res, sizes); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Seeder) seedContent(ctx context.Context, res *Result, sizes Sizes) error {
	if len(res.Users) == 0 {
		return errors.New("no users to seed content for")
	}

	if err := s.seedFollows(ctx, res.Users); err != nil {
		return fmt.Errorf("failed to seed follows: %w", err)
	}

	logger.Log.Info("Creating communities...", zap.Int("count", sizes.Communities))
	communities, err := s.seedCommunities(ctx, res.Users, sizes.Communities)
	if err != nil {
		return fmt.Errorf("failed to seed communities: %w", err)
	}
	res.Communities = communities

	logger.Log.Info("Creating posts...", zap.Int("count", sizes.Posts))
	posts, err := s.seedPosts(ctx, res.Users, communities, sizes.Posts)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}
	res.Posts = posts

	logger.Log.Info("Creating comment threads...", zap.Int("count", sizes.Comments))
	if res.Comments, err = s.seedComments(ctx, res.Users, posts, sizes.Comments); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	logger.Log.Info("Creating reactions...", zap.Int("count", sizes.Reactions))
	if res.Reactions, err = s.seedReactions(ctx, res.Users, posts, sizes.Reactions); err != nil {
		return fmt.Errorf("failed to seed reactions: %w", err)
	}

	for _, c := range communities {
		if err := s.seedCommunityLife(ctx, c, res.Users); err != nil {
			return fmt.Errorf("failed to seed community %s: %w", c.Slug, err)
		}
	}

	logger.Log.Info("Seeding complete",
		zap.Int("users", len(res.Users)),
		zap.Int("communities", len(res.Communities)),
		zap.Int("posts", len(res.Posts)),
		zap.Int("comments", res.Comments),
		zap.Int("reactions", res.Reactions))
	return nil
}

func (s *Seeder) seedUsers(ctx context.Context, count int) ([]*models.User, error) {
	hash, err := hashPassword()
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		username := fmt.Sprintf("%s%d", usernameBase(gofakeit.Username()), s.rng.Intn(10000))
		lastActive := gofakeit.DateRange(time.Now().AddDate(0, 0, -30), time.Now())
		user := &models.User{
			Email:        username + "@example.com",
			Username:     username,
			DisplayName:  gofakeit.Name(),
			Bio:          gofakeit.HipsterSentence(),
			AvatarURL:    avatarURL(username),
			PasswordHash: &hash,
			LastActiveAt: &lastActive,
		}
		if err := s.store.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				i--
				continue
			}
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedFollows(ctx context.Context, users []*models.User) error {
	for _, u := range users {
		for n := s.rng.Intn(min(len(users), 8)); n > 0; n-- {
			other := users[s.rng.Intn(len(users))]
			if other.ID == u.ID {
				continue
			}
			err := s.store.Users().CreateFollow(ctx, u.ID, other.ID)
			if err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
				return err
			}
		}
	}
	return nil
}

var communityThemes = []struct {
	name string
	tags []string
}{
	{"Community Garden", []string{"garden", "outdoors"}},
	{"Bike Kitchen", []string{"cycling", "repair"}},
	{"Tool Library", []string{"tools", "sharing"}},
	{"Book Swap", []string{"books", "reading"}},
	{"Parents Network", []string{"family", "kids"}},
	{"Repair Cafe", []string{"repair", "sustainability"}},
	{"Running Club", []string{"running", "fitness"}},
	{"Food Bank Volunteers", []string{"food", "volunteering"}},
	{"Board Game Night", []string{"games", "social"}},
	{"Language Exchange", []string{"languages", "social"}},
}

func (s *Seeder) seedCommunities(ctx context.Context, users []*models.User, count int) ([]*models.Community, error) {
	communities := make([]*models.Community, 0, count)
	for i := 0; i < count; i++ {
		theme := communityThemes[i%len(communityThemes)]
		name := fmt.Sprintf("%s %s", gofakeit.City(), theme.name)
		slug := richtext.Slug(name)
		if _, err := s.store.Communities().GetCommunityBySlug(ctx, slug); err == nil {
			slug = fmt.Sprintf("%s-%d", slug, i)
		}
		community := &models.Community{
			Slug:        slug,
			Name:        name,
			Description: gofakeit.HipsterSentence(),
			OwnerID:     users[s.rng.Intn(len(users))].ID,
			Tags:        theme.tags,
		}
		if err := s.store.Communities().CreateCommunity(ctx, community); err != nil {
			return nil, err
		}

		for _, u := range users {
			if u.ID == community.OwnerID || s.rng.Float32() >= 0.4 {
				continue
			}
			if err := s.store.Communities().Join(ctx, community.ID, u.ID); err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
				return nil, err
			}
		}
		communities = append(communities, community)
	}
	return communities, nil
}

var postTemplates = []string{
	"Anyone around this weekend? #%s",
	"Just finished %s. Thanks @%s for the help!",
	"Sharing some notes from today: %s #%s",
	"Looking for recommendations on %s",
	"Photos are up at https://example.com/%s #%s",
}

func (s *Seeder) seedPosts(ctx context.Context, users []*models.User, communities []*models.Community, count int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[s.rng.Intn(len(users))]
		post := &models.Post{UserID: author.ID}

		// A third of posts go to a community the author belongs to.
		if len(communities) > 0 && s.rng.Float32() < 0.33 {
			c := communities[s.rng.Intn(len(communities))]
			if ok, _ := s.store.Communities().IsMember(ctx, c.ID, author.ID); ok {
				post.CommunityID = &c.ID
			}
		}

		post.Content = s.postContent(users)
		post.Hashtags = richtext.Hashtags(post.Content)
		if err := s.store.Posts().CreatePost(ctx, post); err != nil {
			return nil, fmt.Errorf("failed to create post: %w", err)
		}

		created := gofakeit.DateRange(time.Now().AddDate(0, 0, -30), time.Now())
		if err := s.backdate(&models.Post{}, post.ID, created); err != nil {
			return nil, err
		}
		post.CreatedAt = created
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *Seeder) postContent(users []*models.User) string {
	word := strings.ToLower(gofakeit.Word())
	switch tpl := postTemplates[s.rng.Intn(len(postTemplates))]; strings.Count(tpl, "%s") {
	case 1:
		return fmt.Sprintf(tpl, word)
	default:
		if strings.Contains(tpl, "@%s") {
			return fmt.Sprintf(tpl, gofakeit.HipsterSentence(), users[s.rng.Intn(len(users))].Username)
		}
		return fmt.Sprintf(tpl, word, strings.ToLower(gofakeit.Word()))
	}
}

var commentTemplates = []string{
	"Count me in!",
	"Great idea",
	"Thanks for sharing",
	"Where exactly?",
	"I can bring snacks",
	"Same here",
	"What time works for everyone?",
}

// seedComments builds threads: roughly half the comments reply to an earlier
// comment on the same post.
func (s *Seeder) seedComments(ctx context.Context, users []*models.User, posts []*models.Post, count int) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}
	byPost := make(map[string][]*models.Comment)
	created := 0
	for i := 0; i < count; i++ {
		post := posts[s.rng.Intn(len(posts))]
		content := commentTemplates[s.rng.Intn(len(commentTemplates))]
		if s.rng.Float32() < 0.5 {
			content = gofakeit.HipsterSentence()
		}
		comment := &models.Comment{
			PostID:  post.ID,
			UserID:  users[s.rng.Intn(len(users))].ID,
			Content: content,
		}
		if existing := byPost[post.ID]; len(existing) > 0 && s.rng.Float32() < 0.5 {
			parent := existing[s.rng.Intn(len(existing))]
			comment.ParentID = &parent.ID
		}
		if err := s.store.Comments().CreateComment(ctx, comment); err != nil {
			return created, fmt.Errorf("failed to create comment: %w", err)
		}
		byPost[post.ID] = append(byPost[post.ID], comment)
		created++
	}
	return created, nil
}

func (s *Seeder) seedReactions(ctx context.Context, users []*models.User, posts []*models.Post, count int) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}
	created := 0
	for i := 0; i < count; i++ {
		user := users[s.rng.Intn(len(users))]
		post := posts[s.rng.Intn(len(posts))]
		kind := models.ReactionKinds[s.rng.Intn(len(models.ReactionKinds))]
		isNew, err := s.store.Reactions().SetReaction(ctx, user.ID, models.TargetPost, post.ID, kind)
		if err != nil {
			return created, fmt.Errorf("failed to create reaction: %w", err)
		}
		if isNew {
			created++
		}
	}
	return created, nil
}

var serviceNames = []string{"Dog walking", "Bike repair", "Tutoring", "Tax help", "Sewing and alterations", "Lawn mowing", "Computer help"}

var titleCase = cases.Title(language.English)

var currencies = []string{"USD", "USD", "USD", "EUR", "GBP"}

// seedCommunityLife adds events, services and donations to a community.
func (s *Seeder) seedCommunityLife(ctx context.Context, c *models.Community, users []*models.User) error {
	members, err := s.store.Communities().Members(ctx, c.ID, 100, 0)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}
	pick := func() string { return members[s.rng.Intn(len(members))].UserID }

	for i := s.rng.Intn(3) + 1; i > 0; i-- {
		start := gofakeit.DateRange(time.Now().Add(24*time.Hour), time.Now().AddDate(0, 1, 0)).Truncate(time.Hour)
		event := &models.Event{
			CommunityID: c.ID,
			OrganizerID: pick(),
			Title:       fmt.Sprintf("%s meetup", titleCase.String(gofakeit.Word())),
			Description: gofakeit.HipsterSentence(),
			Location:    gofakeit.City(),
			StartsAt:    start,
			EndsAt:      start.Add(2 * time.Hour),
		}
		if err := s.store.Events().CreateEvent(ctx, event); err != nil {
			return err
		}
		for _, m := range members {
			if s.rng.Float32() < 0.5 {
				status := []string{models.RSVPGoing, models.RSVPInterested}[s.rng.Intn(2)]
				if err := s.store.Events().SetRSVP(ctx, event.ID, m.UserID, status); err != nil {
					return err
				}
			}
		}
	}

	for i := s.rng.Intn(3); i > 0; i-- {
		provider := pick()
		service := &models.Service{
			CommunityID: c.ID,
			ProviderID:  provider,
			Name:        serviceNames[s.rng.Intn(len(serviceNames))],
			Description: gofakeit.HipsterSentence(),
			Contact:     gofakeit.Email(),
		}
		if err := s.store.Services().CreateService(ctx, service); err != nil {
			return err
		}
	}

	for i := s.rng.Intn(5); i > 0; i-- {
		donation := &models.Donation{
			CommunityID: c.ID,
			DonorID:     users[s.rng.Intn(len(users))].ID,
			AmountCents: int64(gofakeit.Number(5, 200)) * 100,
			Currency:    currencies[s.rng.Intn(len(currencies))],
			Anonymous:   s.rng.Float32() < 0.25,
		}
		if s.rng.Float32() < 0.5 {
			donation.Message = gofakeit.HipsterSentence()
		}
		if err := s.store.Donations().CreateDonation(ctx, donation); err != nil {
			return err
		}
	}
	return nil
}

// backdate spreads seeded rows over the last month so feeds have history.
func (s *Seeder) backdate(model interface{}, id string, at time.Time) error {
	return s.db.Model(model).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{"created_at": at, "updated_at": at}).Error
}

// seedTables lists every table in reverse dependency order.
var seedTables = []string{
	"complaints",
	"notifications",
	"donations",
	"services",
	"event_rsvps",
	"events",
	"reactions",
	"comments",
	"posts",
	"community_members",
	"communities",
	"follows",
	"users",
}

// Clean removes all rows from every table. It is meant for development
// databases only.
func (s *Seeder) Clean(ctx context.Context) error {
	for _, table := range seedTables {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}

func hashPassword() (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func usernameBase(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	base := b.String()
	if len(base) > 20 {
		base = base[:20]
	}
	if base == "" {
		base = "neighbour"
	}
	return base
}

func avatarURL(username string) string {
	return fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", username)
}
