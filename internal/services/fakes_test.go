package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"carlink/market/internal/config"
	"carlink/market/internal/models"
	"carlink/market/internal/utils"
)

// In-memory stores backing the service tests. They mirror the unique indexes
// of the Mongo repositories by returning the same duplicate-key error.

func dupKey(index string) error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{
		Code:    11000,
		Message: "E11000 duplicate key error index: " + index,
	}}}
}

func testConfig() *config.Config {
	return &config.Config{
		PasswordMinLength:   8,
		MatchCandidatePage:  200,
		DefaultLocale:       "en-US",
	}
}

var nopLog = zap.NewNop()

type fakeUsers struct {
	mu   sync.Mutex
	byID map[utils.SixID]*models.User
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{byID: map[utils.SixID]*models.User{}}
	for _, u := range users {
		u.GenIDIfEmpty()
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Insert(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byID {
		if o.Email == strings.ToLower(u.Email) {
			return dupKey("email")
		}
	}
	u.GenID()
	u.Email = strings.ToLower(u.Email)
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id utils.SixID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id utils.SixID, name, phone string, prefs *models.NotificationPreferences) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	u.Name, u.Phone = name, phone
	if prefs != nil {
		u.NotificationPreferences = prefs
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) SetDeviceToken(_ context.Context, id utils.SixID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	u.DeviceToken = token
	return nil
}

type fakeListings struct {
	mu       sync.Mutex
	byID     map[utils.SixID]*models.Listing
	searches int
}

func newFakeListings(listings ...*models.Listing) *fakeListings {
	f := &fakeListings{byID: map[utils.SixID]*models.Listing{}}
	for _, l := range listings {
		l.GenIDIfEmpty()
		f.byID[l.ID] = l
	}
	return f
}

func (f *fakeListings) Insert(_ context.Context, l *models.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.GenID()
	cp := *l
	f.byID[l.ID] = &cp
	return nil
}

func (f *fakeListings) get(id utils.SixID) (*models.Listing, error) {
	l, ok := f.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *l
	return &cp, nil
}

func (f *fakeListings) FindByID(_ context.Context, id utils.SixID) (*models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(id)
}

func (f *fakeListings) IncrementViews(_ context.Context, id utils.SixID) (*models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.byID[id]; ok {
		l.Views++
	}
	return f.get(id)
}

func (f *fakeListings) Update(_ context.Context, id utils.SixID, upd models.ListingUpdate) (*models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	if upd.Title != nil {
		l.Title = *upd.Title
	}
	if upd.Price != nil {
		l.Price = *upd.Price
	}
	if upd.Location != nil {
		l.Location = *upd.Location
	}
	if upd.Mileage != nil {
		l.Mileage = upd.Mileage
	}
	return f.get(id)
}

func (f *fakeListings) SetActive(_ context.Context, id utils.SixID, active bool) (*models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.byID[id]; ok {
		l.IsActive = active
	}
	return f.get(id)
}

func (f *fakeListings) AddImage(_ context.Context, id utils.SixID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	for _, k := range l.Images {
		if k == key {
			return nil
		}
	}
	l.Images = append(l.Images, key)
	return nil
}

func (f *fakeListings) Delete(_ context.Context, id utils.SixID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeListings) Search(_ context.Context, q models.ListingFilter) ([]models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Listing{}
	for _, l := range f.byID {
		switch {
		case q.SellerID != nil && l.SellerID != *q.SellerID,
			q.ActiveOnly && !l.IsActive,
			q.Brand != "" && l.Brand != q.Brand,
			q.Model != "" && l.Model != q.Model,
			q.CarType != "" && l.CarType != q.CarType,
			q.MinPrice != nil && l.Price < *q.MinPrice,
			q.MaxPrice != nil && l.Price > *q.MaxPrice,
			q.Location != "" && !strings.Contains(strings.ToLower(l.Location), strings.ToLower(q.Location)):
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Less(out[j].ID) })
	f.searches++

	limit := q.Limit
	if limit <= 0 || limit > models.MaxPageSize {
		limit = 50
	}
	if q.Skip >= int64(len(out)) {
		return []models.Listing{}, nil
	}
	out = out[q.Skip:]
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeRequests struct {
	mu   sync.Mutex
	byID map[utils.SixID]*models.BuyerRequest
}

func newFakeRequests() *fakeRequests {
	return &fakeRequests{byID: map[utils.SixID]*models.BuyerRequest{}}
}

func (f *fakeRequests) Insert(_ context.Context, br *models.BuyerRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	br.GenID()
	cp := *br
	f.byID[br.ID] = &cp
	return nil
}

func (f *fakeRequests) FindByID(_ context.Context, id utils.SixID) (*models.BuyerRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	br, ok := f.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *br
	return &cp, nil
}

func (f *fakeRequests) ListByBuyer(_ context.Context, buyerID utils.SixID) ([]models.BuyerRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.BuyerRequest{}
	for _, br := range f.byID {
		if br.BuyerID == buyerID {
			out = append(out, *br)
		}
	}
	return out, nil
}

type fakeMatches struct {
	mu    sync.Mutex
	items []models.Match
	// existsMisses makes Exists report false this many times, simulating a
	// concurrent generator that stored the match after our check.
	existsMisses int
}

func (f *fakeMatches) Exists(_ context.Context, buyerID, listingID, requestID utils.SixID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsMisses > 0 {
		f.existsMisses--
		return false, nil
	}
	return f.find(buyerID, listingID, requestID), nil
}

func (f *fakeMatches) find(buyerID, listingID, requestID utils.SixID) bool {
	for _, m := range f.items {
		if m.BuyerID == buyerID && m.ListingID == listingID && m.RequestID == requestID {
			return true
		}
	}
	return false
}

func (f *fakeMatches) Insert(_ context.Context, m *models.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.find(m.BuyerID, m.ListingID, m.RequestID) {
		return dupKey("match_triple")
	}
	m.GenID()
	f.items = append(f.items, *m)
	return nil
}

func (f *fakeMatches) ListByRequest(_ context.Context, requestID utils.SixID) ([]models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Match{}
	for _, m := range f.items {
		if m.RequestID == requestID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (f *fakeMatches) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeInquiries struct {
	mu   sync.Mutex
	byID map[utils.SixID]*models.Inquiry
}

func newFakeInquiries() *fakeInquiries {
	return &fakeInquiries{byID: map[utils.SixID]*models.Inquiry{}}
}

func (f *fakeInquiries) Insert(_ context.Context, inq *models.Inquiry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inq.GenID()
	cp := *inq
	f.byID[inq.ID] = &cp
	return nil
}

func (f *fakeInquiries) FindByID(_ context.Context, id utils.SixID) (*models.Inquiry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inq, ok := f.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *inq
	return &cp, nil
}

func (f *fakeInquiries) SetStatus(_ context.Context, id utils.SixID, status models.InquiryStatus, at time.Time) (*models.Inquiry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inq, ok := f.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	inq.Status, inq.UpdatedAt = status, at
	if status == models.InquiryResponded {
		inq.RespondedAt = &at
	}
	cp := *inq
	return &cp, nil
}

func (f *fakeInquiries) List(_ context.Context, q models.InquiryFilter) ([]models.Inquiry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Inquiry{}
	for _, inq := range f.byID {
		switch {
		case q.BuyerID != nil && inq.BuyerID != *q.BuyerID,
			q.SellerID != nil && inq.SellerID != *q.SellerID,
			q.Status != "" && inq.Status != q.Status:
			continue
		}
		out = append(out, *inq)
	}
	return out, nil
}

func (f *fakeInquiries) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeChats struct {
	mu       sync.Mutex
	rooms    []*models.ChatRoom
	messages []*models.ChatMessage
	// pairMisses makes FindRoomByPair miss this many times even when the
	// room exists, the way a reader inside an aborted transaction or a
	// racing request sees it.
	pairMisses int
	tick       time.Duration
}

func newFakeChats() *fakeChats { return &fakeChats{} }

func (f *fakeChats) FindRoomByPair(_ context.Context, key string) (*models.ChatRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pairMisses > 0 {
		f.pairMisses--
		return nil, mongo.ErrNoDocuments
	}
	for _, r := range f.rooms {
		if r.PairKey == key {
			cp := *r
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeChats) FindRoomByID(_ context.Context, id utils.SixID) (*models.ChatRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeChats) InsertRoom(_ context.Context, room *models.ChatRoom) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.PairKey == room.PairKey {
			return dupKey("room_pair")
		}
	}
	room.GenID()
	cp := *room
	f.rooms = append(f.rooms, &cp)
	return nil
}

func (f *fakeChats) NextMessageSeq(_ context.Context, id utils.SixID, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.ID == id {
			r.MessageSeq++
			r.UpdatedAt = at
			return r.MessageSeq, nil
		}
	}
	return 0, mongo.ErrNoDocuments
}

func (f *fakeChats) ListRoomsForUser(_ context.Context, userID utils.SixID, _ int64) ([]models.ChatRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ChatRoom{}
	for _, r := range f.rooms {
		if r.HasMember(userID) {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeChats) InsertMessage(_ context.Context, m *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.GenID()
	// keep creation order strict even when the clock does not advance
	f.tick++
	m.CreatedAt = m.CreatedAt.Add(f.tick)
	cp := *m
	f.messages = append(f.messages, &cp)
	return nil
}

func (f *fakeChats) FindMessageByID(_ context.Context, id utils.SixID) (*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeChats) MarkMessageRead(_ context.Context, id utils.SixID) (*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID == id {
			m.IsRead = true
			cp := *m
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeChats) MarkRoomRead(_ context.Context, roomID, readerID utils.SixID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.messages {
		if m.RoomID == roomID && m.SenderID != readerID && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeChats) ListMessages(_ context.Context, roomID utils.SixID, before *time.Time, limit int64) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ChatMessage{}
	for i := len(f.messages) - 1; i >= 0; i-- {
		m := f.messages[i]
		if m.RoomID != roomID || (before != nil && !m.CreatedAt.Before(*before)) {
			continue
		}
		out = append(out, *m)
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeChats) CountUnread(_ context.Context, roomID, readerID utils.SixID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.messages {
		if m.RoomID == roomID && m.SenderID != readerID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (f *fakeChats) roomCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rooms)
}

// messagesIn returns the room's messages oldest first.
func (f *fakeChats) messagesIn(roomID utils.SixID) []models.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChatMessage
	for _, m := range f.messages {
		if m.RoomID == roomID {
			out = append(out, *m)
		}
	}
	return out
}

type fakeFavorites struct {
	mu    sync.Mutex
	items []models.Favorite
}

func (f *fakeFavorites) Add(_ context.Context, userID, listingID utils.SixID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fv := range f.items {
		if fv.UserID == userID && fv.ListingID == listingID {
			return nil
		}
	}
	f.items = append([]models.Favorite{{UserID: userID, ListingID: listingID, CreatedAt: time.Now()}}, f.items...)
	return nil
}

func (f *fakeFavorites) Remove(_ context.Context, userID, listingID utils.SixID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, fv := range f.items {
		if fv.UserID == userID && fv.ListingID == listingID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeFavorites) ListByUser(_ context.Context, userID utils.SixID) ([]models.Favorite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Favorite{}
	for _, fv := range f.items {
		if fv.UserID == userID {
			out = append(out, fv)
		}
	}
	return out, nil
}

type fakeTemplates struct {
	items map[string]*models.EmailTemplate
}

func (f *fakeTemplates) Find(_ context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	t, ok := f.items[templateID+"/"+locale]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return t, nil
}

func (f *fakeTemplates) Save(_ context.Context, t *models.EmailTemplate) error {
	if f.items == nil {
		f.items = map[string]*models.EmailTemplate{}
	}
	f.items[t.TemplateID+"/"+t.Locale] = t
	return nil
}

type fakeStorage struct{}

func (fakeStorage) GeneratePresignedPutURL(_ context.Context, userID, listingID, filename, _ string) (string, string, error) {
	key := "uploads/" + userID + "/" + listingID + "/abc_" + filename
	return "https://bucket.example/" + key + "?sig=1", key, nil
}

type enqueued struct {
	ListingID utils.SixID
	Key       string
	RequestID utils.SixID
}

type fakeTasks struct {
	mu    sync.Mutex
	calls []enqueued
	err   error
}

func (f *fakeTasks) EnqueueImageProcess(_ context.Context, listingID utils.SixID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, enqueued{ListingID: listingID, Key: key})
	return f.err
}

func (f *fakeTasks) EnqueueMatchGeneration(_ context.Context, requestID utils.SixID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, enqueued{RequestID: requestID})
	return f.err
}
