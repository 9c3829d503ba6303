package services_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketplace-service/models"
	"marketplace-service/repository"
	"marketplace-service/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Mock Repositories ---

type mockListingRepo struct {
	mu       sync.Mutex
	listings map[primitive.ObjectID]*models.Listing
	lastFind models.ListingFilter
	finds    int
}

func newMockListingRepo() *mockListingRepo {
	return &mockListingRepo{listings: map[primitive.ObjectID]*models.Listing{}}
}

func (m *mockListingRepo) Create(_ context.Context, l *models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	cp := *l
	m.listings[l.ID] = &cp
	return nil
}

func (m *mockListingRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *mockListingRepo) FindBySlug(_ context.Context, slug string) (*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.listings {
		if l.Slug == slug {
			cp := *l
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockListingRepo) Find(_ context.Context, f models.ListingFilter) ([]models.Listing, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFind = f
	m.finds++
	out := []models.Listing{}
	for _, l := range m.listings {
		if !f.IncludeInactive && !l.IsActive {
			continue
		}
		if f.SupplierID != nil && l.SupplierID != *f.SupplierID {
			continue
		}
		if f.Category != "" && l.Category != f.Category {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, int64(len(out)), nil
}

func (m *mockListingRepo) Update(_ context.Context, id primitive.ObjectID, updates map[string]interface{}) (*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for k, v := range updates {
		switch k {
		case "title":
			l.Title = v.(string)
		case "slug":
			l.Slug = v.(string)
		case "description":
			l.Description = v.(string)
		case "category":
			l.Category = v.(string)
		case "price":
			l.Price = v.(models.Price)
		case "tags":
			l.Tags = v.([]string)
		case "featured":
			l.Featured = v.(bool)
		case "isActive":
			l.IsActive = v.(bool)
		}
	}
	l.UpdatedAt = time.Now().UTC()
	cp := *l
	return &cp, nil
}

func (m *mockListingRepo) IncrementViews(_ context.Context, id primitive.ObjectID) (*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	l.Views++
	cp := *l
	return &cp, nil
}

func (m *mockListingRepo) IncrementInquiries(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return repository.ErrNotFound
	}
	l.Inquiries++
	return nil
}

func (m *mockListingRepo) Categories(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	out := []string{}
	for _, l := range m.listings {
		if l.IsActive && !seen[l.Category] {
			seen[l.Category] = true
			out = append(out, l.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockListingRepo) Count(_ context.Context, filter map[string]interface{}) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, l := range m.listings {
		if active, ok := filter["isActive"]; ok && l.IsActive != active.(bool) {
			continue
		}
		n++
	}
	return n, nil
}

func (m *mockListingRepo) EnsureIndexes(context.Context) error { return nil }

type mockSupplierRepo struct {
	mu        sync.Mutex
	suppliers map[primitive.ObjectID]*models.Supplier
}

func newMockSupplierRepo() *mockSupplierRepo {
	return &mockSupplierRepo{suppliers: map[primitive.ObjectID]*models.Supplier{}}
}

func (m *mockSupplierRepo) Create(_ context.Context, s *models.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.suppliers {
		if existing.UserID == s.UserID {
			return repository.ErrDuplicate
		}
	}
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	cp := *s
	m.suppliers[s.ID] = &cp
	return nil
}

func (m *mockSupplierRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suppliers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSupplierRepo) FindByUserID(_ context.Context, userID primitive.ObjectID) (*models.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.suppliers {
		if s.UserID == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockSupplierRepo) Find(_ context.Context, f models.SupplierFilter) ([]models.Supplier, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Supplier{}
	for _, s := range m.suppliers {
		if !f.IncludeInactive && !s.IsActive {
			continue
		}
		if f.Verified != nil && s.Verified != *f.Verified {
			continue
		}
		out = append(out, *s)
	}
	return out, int64(len(out)), nil
}

func (m *mockSupplierRepo) Update(_ context.Context, id primitive.ObjectID, updates map[string]interface{}) (*models.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suppliers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for k, v := range updates {
		switch k {
		case "companyName":
			s.CompanyName = v.(string)
		case "description":
			s.Description = v.(string)
		case "categories":
			s.Categories = v.([]string)
		case "responseRate":
			s.ResponseRate = v.(float64)
		case "verified":
			s.Verified = v.(bool)
		case "isActive":
			s.IsActive = v.(bool)
		case "isPremium":
			s.IsPremium = v.(bool)
		case "premiumExpiry":
			if v == nil {
				s.PremiumExpiry = nil
			} else {
				t := v.(time.Time)
				s.PremiumExpiry = &t
			}
		case "rating":
			s.Rating = v.(float64)
		case "reviewCount":
			s.ReviewCount = v.(int64)
		case "lastActive":
			s.LastActive = v.(time.Time)
		case "businessType":
			s.BusinessType = v.(string)
		}
	}
	cp := *s
	return &cp, nil
}

func (m *mockSupplierRepo) IncrementInquiries(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suppliers[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.TotalInquiries++
	return nil
}

func (m *mockSupplierRepo) Count(_ context.Context, filter map[string]interface{}) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.suppliers {
		if v, ok := filter["verified"]; ok && s.Verified != v.(bool) {
			continue
		}
		if _, ok := filter["isPremium"]; ok && !s.IsPremiumAt(time.Now()) {
			continue
		}
		n++
	}
	return n, nil
}

func (m *mockSupplierRepo) EnsureIndexes(context.Context) error { return nil }

type mockUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[primitive.ObjectID]*models.User{}}
}

func (m *mockUserRepo) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) Find(_ context.Context, f models.UserFilter) ([]models.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.User{}
	for _, u := range m.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (m *mockUserRepo) Update(_ context.Context, id primitive.ObjectID, updates map[string]interface{}) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for k, v := range updates {
		switch k {
		case "name":
			u.Name = v.(string)
		case "phone":
			u.Phone = v.(string)
		case "company":
			u.Company = v.(string)
		case "role":
			u.Role = v.(string)
		}
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) Count(context.Context, map[string]interface{}) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

func (m *mockUserRepo) EnsureIndexes(context.Context) error { return nil }

func (m *mockUserRepo) add(name, role string) *models.User {
	u := &models.User{
		ID:       primitive.NewObjectID(),
		Name:     name,
		Email:    name + "@example.com",
		Role:     role,
		IsActive: true,
	}
	_ = m.Create(context.Background(), u)
	return u
}

type mockMessageRepo struct {
	mu            sync.Mutex
	messages      []models.Message
	conversations map[string]*models.Conversation
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{conversations: map[string]*models.Conversation{}}
}

func (m *mockMessageRepo) Create(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *mockMessageRepo) FindByConversation(_ context.Context, conversationID string, _ *time.Time, _ int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Message{}
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockMessageRepo) MarkRead(_ context.Context, conversationID string, readerID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.messages {
		msg := &m.messages[i]
		if msg.ConversationID == conversationID && msg.RecipientID == readerID && !msg.Read {
			msg.Read = true
			n++
		}
	}
	return n, nil
}

func (m *mockMessageRepo) TouchConversation(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[msg.ConversationID]
	if !ok {
		c = &models.Conversation{
			ID:           msg.ConversationID,
			Participants: []primitive.ObjectID{msg.SenderID, msg.RecipientID},
			Unread:       map[string]int64{},
		}
		m.conversations[msg.ConversationID] = c
	}
	c.LastMessage = msg.Text
	c.LastSenderID = msg.SenderID
	c.LastMessageAt = msg.CreatedAt
	c.Unread[msg.RecipientID.Hex()]++
	return nil
}

func (m *mockMessageRepo) ResetUnread(_ context.Context, conversationID string, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conversations[conversationID]; ok {
		c.Unread[userID.Hex()] = 0
	}
	return nil
}

func (m *mockMessageRepo) Conversations(_ context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Conversation{}
	for _, c := range m.conversations {
		for _, p := range c.Participants {
			if p == userID {
				out = append(out, *c)
				break
			}
		}
	}
	return out, nil
}

func (m *mockMessageRepo) Count(context.Context, map[string]interface{}) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.messages)), nil
}

func (m *mockMessageRepo) EnsureIndexes(context.Context) error { return nil }

type mockNotificationRepo struct {
	mu    sync.Mutex
	items []models.Notification
}

func (m *mockNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	m.items = append(m.items, *n)
	return nil
}

func (m *mockNotificationRepo) Find(_ context.Context, f models.NotificationFilter) ([]models.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Notification{}
	for _, n := range m.items {
		if n.UserID != f.UserID || (f.UnreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	return out, int64(len(out)), nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].UserID == userID {
			m.items[i].Read = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.items {
		if m.items[i].UserID == userID && !m.items[i].Read {
			m.items[i].Read = true
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, item := range m.items {
		if item.UserID == userID && !item.Read {
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) EnsureIndexes(context.Context) error { return nil }

// --- Mock collaborators ---

type mockPublisher struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, e models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}

func (m *mockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

type pushed struct {
	UserID string
	Type   string
	Data   interface{}
}

type mockPusher struct {
	mu     sync.Mutex
	pushes []pushed
}

func (m *mockPusher) Push(userID, eventType string, data interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushes = append(m.pushes, pushed{UserID: userID, Type: eventType, Data: data})
}

func (m *mockPusher) to(userID string) []pushed {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []pushed
	for _, p := range m.pushes {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out
}

type mockUploader struct {
	folder string
}

func (m *mockUploader) PresignUpload(_ context.Context, folder, filename, contentType string, expires time.Duration) (*storage.Upload, error) {
	m.folder = folder
	key := "listings/" + folder + "/abc.png"
	return &storage.Upload{
		URL:       "https://bucket.s3.amazonaws.com/" + key + "?X-Amz-Signature=x",
		Key:       key,
		PublicURL: "https://cdn.example.com/" + key,
		Headers:   map[string]string{"Content-Type": contentType},
		Expires:   expires,
	}, nil
}

// --- Helpers ---

func actorFor(u *models.User) models.Actor {
	return models.Actor{UserID: u.ID.Hex(), Email: u.Email, Role: u.Role}
}

var adminActor = models.Actor{UserID: primitive.NewObjectID().Hex(), Role: models.RoleAdmin}

func seedSupplier(repo *mockSupplierRepo, owner *models.User) *models.Supplier {
	s := &models.Supplier{
		UserID:      owner.ID,
		CompanyName: owner.Name + " Exports",
		Description: "Manufacturer of cotton textiles",
		Categories:  []string{"Textiles"},
		IsActive:    true,
	}
	_ = repo.Create(context.Background(), s)
	return s
}

func seedListing(repo *mockListingRepo, supplier *models.Supplier, title string, active bool) *models.Listing {
	l := &models.Listing{
		SupplierID:  supplier.ID,
		Title:       title,
		Description: "Premium quality",
		Category:    "Textiles",
		Price:       models.Price{Amount: 12.5, Currency: models.DefaultCurrency, Negotiable: true},
		IsActive:    active,
	}
	_ = repo.Create(context.Background(), l)
	return l
}
