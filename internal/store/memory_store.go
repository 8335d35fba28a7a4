package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"creche-backend/internal/models"
)

type memData struct {
	seq         map[string]uint
	users       map[uint]models.User
	children    map[uint]models.Child
	daycares    map[uint]models.Daycare
	photos      map[uint]models.Photo
	enrollments map[uint]models.Enrollment
	reviews     map[uint]models.Review
	audit       []models.AuditLog
}

func newMemData() *memData {
	return &memData{
		seq:         make(map[string]uint),
		users:       make(map[uint]models.User),
		children:    make(map[uint]models.Child),
		daycares:    make(map[uint]models.Daycare),
		photos:      make(map[uint]models.Photo),
		enrollments: make(map[uint]models.Enrollment),
		reviews:     make(map[uint]models.Review),
	}
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (d *memData) clone() *memData {
	return &memData{
		seq:         copyMap(d.seq),
		users:       copyMap(d.users),
		children:    copyMap(d.children),
		daycares:    copyMap(d.daycares),
		photos:      copyMap(d.photos),
		enrollments: copyMap(d.enrollments),
		reviews:     copyMap(d.reviews),
		audit:       append([]models.AuditLog(nil), d.audit...),
	}
}

func (d *memData) next(table string) uint {
	d.seq[table]++
	return d.seq[table]
}

// MemoryStore keeps every entity in-process. A single mutex serializes all
// access, so Tx is trivially serializable; a failed Tx restores the snapshot
// taken when it started. Single instance only.
type MemoryStore struct {
	mu   *sync.Mutex
	data *memData
	inTx bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mu: &sync.Mutex{}, data: newMemData()}
}

func (m *MemoryStore) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *MemoryStore) Tx(ctx context.Context, fn func(Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	tx := &MemoryStore{mu: m.mu, data: m.data, inTx: true}
	if err := fn(tx); err != nil {
		*m.data = *snapshot
		return err
	}
	// A cancelled context fails the commit, as it does on Postgres.
	if err := ctx.Err(); err != nil {
		*m.data = *snapshot
		return err
	}
	return nil
}

func paginate[T any](items []T, p Page) []T {
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// ----------------------------------------
// users
// ----------------------------------------

func (m *MemoryStore) userConflict(u *models.User) bool {
	for id, other := range m.data.users {
		if id == u.ID {
			continue
		}
		if other.Email == u.Email {
			return true
		}
		if u.Phone != nil && other.Phone != nil && *u.Phone == *other.Phone {
			return true
		}
	}
	return false
}

func (m *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	defer m.lock()()
	if m.userConflict(u) {
		return ErrDuplicate
	}
	now := time.Now()
	u.ID = m.data.next("users")
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Role == "" {
		u.Role = models.RoleParent
	}
	m.data.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id uint) (models.User, error) {
	defer m.lock()()
	u, ok := m.data.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) LockUser(ctx context.Context, id uint) (models.User, error) {
	return m.GetUser(ctx, id)
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	defer m.lock()()
	for _, u := range m.data.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (m *MemoryStore) UpdateUser(ctx context.Context, u *models.User) error {
	defer m.lock()()
	if _, ok := m.data.users[u.ID]; !ok {
		return ErrNotFound
	}
	if m.userConflict(u) {
		return ErrDuplicate
	}
	u.UpdatedAt = time.Now()
	m.data.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) DeleteUser(ctx context.Context, id uint) error {
	defer m.lock()()
	if _, ok := m.data.users[id]; !ok {
		return ErrNotFound
	}
	for cid, c := range m.data.children {
		if c.UserID == id {
			m.deleteChild(cid)
		}
	}
	for did, d := range m.data.daycares {
		if d.UserID == id {
			m.deleteDaycare(did)
		}
	}
	for eid, e := range m.data.enrollments {
		if e.UserID == id {
			delete(m.data.enrollments, eid)
		}
	}
	for rid, r := range m.data.reviews {
		if r.UserID == id {
			delete(m.data.reviews, rid)
		}
	}
	delete(m.data.users, id)
	return nil
}

func (m *MemoryStore) ListUsers(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	defer m.lock()()
	page := f.Page.Normalize(20)
	users := make([]models.User, 0, len(m.data.users))
	for _, u := range m.data.users {
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })
	return paginate(users, page), int64(len(users)), nil
}

func (m *MemoryStore) CountUsersByRole(ctx context.Context) (map[models.UserRole]int64, error) {
	defer m.lock()()
	res := make(map[models.UserRole]int64)
	for _, u := range m.data.users {
		res[u.Role]++
	}
	return res, nil
}

// ----------------------------------------
// children
// ----------------------------------------

func (m *MemoryStore) CreateChild(ctx context.Context, c *models.Child) error {
	defer m.lock()()
	if _, ok := m.data.users[c.UserID]; !ok {
		return ErrNotFound
	}
	now := time.Now()
	c.ID = m.data.next("children")
	c.CreatedAt, c.UpdatedAt = now, now
	m.data.children[c.ID] = *c
	return nil
}

func (m *MemoryStore) GetChild(ctx context.Context, id uint) (models.Child, error) {
	defer m.lock()()
	c, ok := m.data.children[id]
	if !ok {
		return models.Child{}, ErrNotFound
	}
	return c, nil
}

func (m *MemoryStore) LockChild(ctx context.Context, id uint) (models.Child, error) {
	return m.GetChild(ctx, id)
}

func (m *MemoryStore) ListChildrenByOwner(ctx context.Context, userID uint) ([]models.Child, error) {
	defer m.lock()()
	var res []models.Child
	for _, c := range m.data.children {
		if c.UserID == userID {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Name != res[j].Name {
			return res[i].Name < res[j].Name
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func (m *MemoryStore) UpdateChild(ctx context.Context, c *models.Child) error {
	defer m.lock()()
	if _, ok := m.data.children[c.ID]; !ok {
		return ErrNotFound
	}
	c.UpdatedAt = time.Now()
	m.data.children[c.ID] = *c
	return nil
}

func (m *MemoryStore) deleteChild(id uint) {
	for eid, e := range m.data.enrollments {
		if e.ChildID == id {
			delete(m.data.enrollments, eid)
		}
	}
	delete(m.data.children, id)
}

func (m *MemoryStore) DeleteChild(ctx context.Context, id uint) error {
	defer m.lock()()
	if _, ok := m.data.children[id]; !ok {
		return ErrNotFound
	}
	m.deleteChild(id)
	return nil
}

func (m *MemoryStore) CountChildren(ctx context.Context) (int64, error) {
	defer m.lock()()
	return int64(len(m.data.children)), nil
}

// ----------------------------------------
// daycares and photos
// ----------------------------------------

func (m *MemoryStore) withPhotos(d models.Daycare) models.Daycare {
	d.Photos = nil
	for _, p := range m.data.photos {
		if p.DaycareID == d.ID {
			d.Photos = append(d.Photos, p)
		}
	}
	sort.Slice(d.Photos, func(i, j int) bool { return d.Photos[i].ID < d.Photos[j].ID })
	return d
}

func (m *MemoryStore) CreateDaycare(ctx context.Context, d *models.Daycare) error {
	defer m.lock()()
	if _, ok := m.data.users[d.UserID]; !ok {
		return ErrNotFound
	}
	now := time.Now()
	d.ID = m.data.next("daycares")
	d.CreatedAt, d.UpdatedAt = now, now
	for i := range d.Photos {
		d.Photos[i].ID = m.data.next("photos")
		d.Photos[i].DaycareID = d.ID
		d.Photos[i].CreatedAt = now
		m.data.photos[d.Photos[i].ID] = d.Photos[i]
	}
	stored := *d
	stored.Photos = nil
	m.data.daycares[d.ID] = stored
	return nil
}

func (m *MemoryStore) GetDaycare(ctx context.Context, id uint) (models.Daycare, error) {
	defer m.lock()()
	d, ok := m.data.daycares[id]
	if !ok {
		return models.Daycare{}, ErrNotFound
	}
	return m.withPhotos(d), nil
}

func lessFee(a, b *float64, asc bool) (less, decided bool) {
	switch {
	case a == nil && b == nil:
		return false, false
	case a == nil:
		return false, true
	case b == nil:
		return true, true
	case *a == *b:
		return false, false
	case asc:
		return *a < *b, true
	default:
		return *a > *b, true
	}
}

func (m *MemoryStore) ListDaycares(ctx context.Context, f DaycareFilter) ([]models.Daycare, int64, error) {
	defer m.lock()()
	page := f.Page.Normalize(10)
	search := strings.ToLower(strings.TrimSpace(f.Search))
	list := make([]models.Daycare, 0, len(m.data.daycares))
	for _, d := range m.data.daycares {
		if search != "" &&
			!strings.Contains(strings.ToLower(d.Name), search) &&
			!strings.Contains(strings.ToLower(d.Address), search) {
			continue
		}
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		switch f.Sort {
		case SortOldest:
			return a.ID < b.ID
		case SortPriceAsc, SortPriceDesc:
			if less, decided := lessFee(a.MonthlyFee, b.MonthlyFee, f.Sort == SortPriceAsc); decided {
				return less
			}
			return a.ID < b.ID
		default:
			return a.ID > b.ID
		}
	})
	total := int64(len(list))
	list = paginate(list, page)
	for i := range list {
		list[i] = m.withPhotos(list[i])
	}
	return list, total, nil
}

func (m *MemoryStore) ListDaycaresByOwner(ctx context.Context, userID uint) ([]models.Daycare, error) {
	defer m.lock()()
	var res []models.Daycare
	for _, d := range m.data.daycares {
		if d.UserID == userID {
			res = append(res, m.withPhotos(d))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

func (m *MemoryStore) UpdateDaycare(ctx context.Context, d *models.Daycare) error {
	defer m.lock()()
	cur, ok := m.data.daycares[d.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Name = d.Name
	cur.Address = d.Address
	cur.MonthlyFee = d.MonthlyFee
	cur.Schedule = d.Schedule
	cur.Description = d.Description
	cur.UpdatedAt = time.Now()
	m.data.daycares[d.ID] = cur
	d.UpdatedAt = cur.UpdatedAt
	return nil
}

func (m *MemoryStore) deleteDaycare(id uint) {
	for pid, p := range m.data.photos {
		if p.DaycareID == id {
			delete(m.data.photos, pid)
		}
	}
	for eid, e := range m.data.enrollments {
		if e.DaycareID == id {
			delete(m.data.enrollments, eid)
		}
	}
	for rid, r := range m.data.reviews {
		if r.DaycareID == id {
			delete(m.data.reviews, rid)
		}
	}
	delete(m.data.daycares, id)
}

func (m *MemoryStore) DeleteDaycare(ctx context.Context, id uint) error {
	defer m.lock()()
	if _, ok := m.data.daycares[id]; !ok {
		return ErrNotFound
	}
	m.deleteDaycare(id)
	return nil
}

func (m *MemoryStore) CountDaycares(ctx context.Context) (int64, error) {
	defer m.lock()()
	return int64(len(m.data.daycares)), nil
}

func (m *MemoryStore) AddPhoto(ctx context.Context, p *models.Photo) error {
	defer m.lock()()
	if _, ok := m.data.daycares[p.DaycareID]; !ok {
		return ErrNotFound
	}
	p.ID = m.data.next("photos")
	p.CreatedAt = time.Now()
	m.data.photos[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetPhoto(ctx context.Context, id uint) (models.Photo, error) {
	defer m.lock()()
	p, ok := m.data.photos[id]
	if !ok {
		return models.Photo{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) ListPhotos(ctx context.Context, daycareID uint) ([]models.Photo, error) {
	defer m.lock()()
	return m.withPhotos(models.Daycare{ID: daycareID}).Photos, nil
}

func (m *MemoryStore) DeletePhoto(ctx context.Context, id uint) error {
	defer m.lock()()
	if _, ok := m.data.photos[id]; !ok {
		return ErrNotFound
	}
	delete(m.data.photos, id)
	return nil
}

// ----------------------------------------
// enrollments
// ----------------------------------------

// acceptedTaken mirrors the partial unique index on accepted (child, daycare).
func (m *MemoryStore) acceptedTaken(e models.Enrollment) bool {
	for id, other := range m.data.enrollments {
		if id != e.ID && other.ChildID == e.ChildID && other.DaycareID == e.DaycareID &&
			other.Status == models.EnrollmentAccepted {
			return true
		}
	}
	return false
}

func (m *MemoryStore) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	defer m.lock()()
	if _, ok := m.data.children[e.ChildID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.data.daycares[e.DaycareID]; !ok {
		return ErrNotFound
	}
	if e.Status == "" {
		e.Status = models.EnrollmentPending
	}
	if e.Status == models.EnrollmentAccepted && m.acceptedTaken(*e) {
		return ErrDuplicate
	}
	now := time.Now()
	e.ID = m.data.next("enrollments")
	e.CreatedAt, e.UpdatedAt = now, now
	m.data.enrollments[e.ID] = *e
	return nil
}

func (m *MemoryStore) GetEnrollment(ctx context.Context, id uint) (models.Enrollment, error) {
	defer m.lock()()
	e, ok := m.data.enrollments[id]
	if !ok {
		return models.Enrollment{}, ErrNotFound
	}
	return e, nil
}

func (m *MemoryStore) LockEnrollment(ctx context.Context, id uint) (models.Enrollment, error) {
	return m.GetEnrollment(ctx, id)
}

func (m *MemoryStore) UpdateEnrollmentStatus(ctx context.Context, id uint, status models.EnrollmentStatus) error {
	defer m.lock()()
	e, ok := m.data.enrollments[id]
	if !ok {
		return ErrNotFound
	}
	e.Status = status
	if status == models.EnrollmentAccepted && m.acceptedTaken(e) {
		return ErrDuplicate
	}
	e.UpdatedAt = time.Now()
	m.data.enrollments[id] = e
	return nil
}

func (m *MemoryStore) DeleteEnrollment(ctx context.Context, id uint) error {
	defer m.lock()()
	if _, ok := m.data.enrollments[id]; !ok {
		return ErrNotFound
	}
	delete(m.data.enrollments, id)
	return nil
}

func (m *MemoryStore) filterEnrollments(keep func(models.Enrollment) bool, newestFirst bool) []models.Enrollment {
	var res []models.Enrollment
	for _, e := range m.data.enrollments {
		if keep(e) {
			res = append(res, e)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if newestFirst {
			return res[i].ID > res[j].ID
		}
		return res[i].ID < res[j].ID
	})
	return res
}

func (m *MemoryStore) ListEnrollmentsByUser(ctx context.Context, userID uint) ([]models.Enrollment, error) {
	defer m.lock()()
	return m.filterEnrollments(func(e models.Enrollment) bool { return e.UserID == userID }, true), nil
}

func (m *MemoryStore) ListEnrollmentsByDaycare(ctx context.Context, daycareID uint) ([]models.Enrollment, error) {
	defer m.lock()()
	return m.filterEnrollments(func(e models.Enrollment) bool { return e.DaycareID == daycareID }, true), nil
}

func (m *MemoryStore) LockEnrollmentsByChild(ctx context.Context, childID uint) ([]models.Enrollment, error) {
	defer m.lock()()
	return m.filterEnrollments(func(e models.Enrollment) bool {
		return e.ChildID == childID
	}, false), nil
}

func (m *MemoryStore) HasAcceptedEnrollment(ctx context.Context, userID, daycareID uint) (bool, error) {
	defer m.lock()()
	for _, e := range m.data.enrollments {
		if e.UserID == userID && e.DaycareID == daycareID && e.Status == models.EnrollmentAccepted {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) HasAcceptedChildEnrollment(ctx context.Context, childID, daycareID uint) (bool, error) {
	defer m.lock()()
	for _, e := range m.data.enrollments {
		if e.ChildID == childID && e.DaycareID == daycareID && e.Status == models.EnrollmentAccepted {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) CountEnrollmentsByStatus(ctx context.Context) (EnrollmentCounts, error) {
	defer m.lock()()
	var c EnrollmentCounts
	for _, e := range m.data.enrollments {
		c.Total++
		switch e.Status {
		case models.EnrollmentPending:
			c.Pending++
		case models.EnrollmentAccepted:
			c.Accepted++
		case models.EnrollmentRejected:
			c.Rejected++
		}
	}
	return c, nil
}

// ----------------------------------------
// reviews
// ----------------------------------------

func (m *MemoryStore) withAuthor(r models.Review) models.Review {
	if u, ok := m.data.users[r.UserID]; ok {
		r.User = &u
	}
	return r
}

func (m *MemoryStore) CreateReview(ctx context.Context, r *models.Review) error {
	defer m.lock()()
	if _, ok := m.data.daycares[r.DaycareID]; !ok {
		return ErrNotFound
	}
	for _, other := range m.data.reviews {
		if other.UserID == r.UserID && other.DaycareID == r.DaycareID {
			return ErrDuplicate
		}
	}
	now := time.Now()
	r.ID = m.data.next("reviews")
	r.CreatedAt, r.UpdatedAt = now, now
	stored := *r
	stored.User = nil
	m.data.reviews[r.ID] = stored
	return nil
}

func (m *MemoryStore) GetReview(ctx context.Context, id uint) (models.Review, error) {
	defer m.lock()()
	r, ok := m.data.reviews[id]
	if !ok {
		return models.Review{}, ErrNotFound
	}
	return m.withAuthor(r), nil
}

func (m *MemoryStore) FindReview(ctx context.Context, userID, daycareID uint) (models.Review, error) {
	defer m.lock()()
	for _, r := range m.data.reviews {
		if r.UserID == userID && r.DaycareID == daycareID {
			return r, nil
		}
	}
	return models.Review{}, ErrNotFound
}

func (m *MemoryStore) UpdateReview(ctx context.Context, r *models.Review) error {
	defer m.lock()()
	cur, ok := m.data.reviews[r.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Stars = r.Stars
	cur.Comment = r.Comment
	cur.Recommends = r.Recommends
	cur.UpdatedAt = time.Now()
	m.data.reviews[r.ID] = cur
	r.Verified = cur.Verified
	r.UpdatedAt = cur.UpdatedAt
	return nil
}

func (m *MemoryStore) DeleteReview(ctx context.Context, id uint) error {
	defer m.lock()()
	if _, ok := m.data.reviews[id]; !ok {
		return ErrNotFound
	}
	delete(m.data.reviews, id)
	return nil
}

func (m *MemoryStore) SetReviewsVerified(ctx context.Context, userID, daycareID uint, verified bool) (int64, error) {
	defer m.lock()()
	var n int64
	for id, r := range m.data.reviews {
		if r.UserID == userID && r.DaycareID == daycareID {
			r.Verified = verified
			m.data.reviews[id] = r
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) sortedReviews(keep func(models.Review) bool) []models.Review {
	var res []models.Review
	for _, r := range m.data.reviews {
		if keep(r) {
			res = append(res, m.withAuthor(r))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res
}

func (m *MemoryStore) ListReviewsByDaycare(ctx context.Context, daycareID uint, verified *bool) ([]models.Review, error) {
	defer m.lock()()
	return m.sortedReviews(func(r models.Review) bool {
		return r.DaycareID == daycareID && (verified == nil || r.Verified == *verified)
	}), nil
}

func (m *MemoryStore) ListReviews(ctx context.Context, p Page) ([]models.Review, int64, error) {
	defer m.lock()()
	all := m.sortedReviews(func(models.Review) bool { return true })
	return paginate(all, p.Normalize(20)), int64(len(all)), nil
}

func (m *MemoryStore) CountReviews(ctx context.Context, verified *bool) (int64, error) {
	defer m.lock()()
	var n int64
	for _, r := range m.data.reviews {
		if verified == nil || r.Verified == *verified {
			n++
		}
	}
	return n, nil
}

// ----------------------------------------
// audit
// ----------------------------------------

func (m *MemoryStore) CreateAuditLog(ctx context.Context, l *models.AuditLog) error {
	defer m.lock()()
	l.ID = m.data.next("audit_logs")
	l.CreatedAt = time.Now()
	m.data.audit = append(m.data.audit, *l)
	return nil
}

func (m *MemoryStore) ListAuditLogs(ctx context.Context, f AuditFilter) ([]models.AuditLog, error) {
	defer m.lock()()
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var res []models.AuditLog
	for i := len(m.data.audit) - 1; i >= 0 && len(res) < limit; i-- {
		l := m.data.audit[i]
		if f.EntityType != "" && l.EntityType != f.EntityType {
			continue
		}
		if f.EntityID > 0 && l.EntityID != f.EntityID {
			continue
		}
		if f.UserID > 0 && l.UserID != f.UserID {
			continue
		}
		res = append(res, l)
	}
	return res, nil
}
