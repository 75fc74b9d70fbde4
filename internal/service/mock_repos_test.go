package service

import (
	"context"
	"strconv"

	"gorm.io/gorm"

	"github.com/alan-neves/fechaduras/config"
	"github.com/alan-neves/fechaduras/internal/controlid"
	"github.com/alan-neves/fechaduras/internal/model"
	"github.com/alan-neves/fechaduras/internal/replicado"
	"github.com/alan-neves/fechaduras/internal/repository"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[int]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.users[user.Codpes] = user
	return nil
}

func (m *mockUserRepo) GetByCodpes(_ context.Context, codpes int) (*model.User, error) {
	if u, ok := m.users[codpes]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Upsert(_ context.Context, user *model.User) error {
	if existing, ok := m.users[user.Codpes]; ok {
		existing.Name = user.Name
		return nil
	}
	m.users[user.Codpes] = user
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, codpes int, hash string) error {
	if u, ok := m.users[codpes]; ok {
		u.Password = hash
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *mockUserRepo) List(_ context.Context) ([]model.User, error) {
	var result []model.User
	for _, u := range m.users {
		result = append(result, *u)
	}
	return result, nil
}

// ── Mock LockRepository ──

type mockLockRepo struct {
	locks  map[uint]*model.Lock
	admins map[uint]map[int]bool
	nextID uint
}

func newMockLockRepo() *mockLockRepo {
	return &mockLockRepo{
		locks:  make(map[uint]*model.Lock),
		admins: make(map[uint]map[int]bool),
		nextID: 1,
	}
}

func (m *mockLockRepo) Create(_ context.Context, lock *model.Lock) error {
	if lock.ID == 0 {
		lock.ID = m.nextID
		m.nextID++
	}
	m.locks[lock.ID] = lock
	return nil
}

func (m *mockLockRepo) GetByID(_ context.Context, id uint) (*model.Lock, error) {
	if l, ok := m.locks[id]; ok {
		return l, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLockRepo) List(_ context.Context) ([]model.Lock, error) {
	var result []model.Lock
	for _, l := range m.locks {
		result = append(result, *l)
	}
	return result, nil
}

func (m *mockLockRepo) ListByAdmin(_ context.Context, codpes int) ([]model.Lock, error) {
	var result []model.Lock
	for id, l := range m.locks {
		if m.admins[id][codpes] {
			result = append(result, *l)
		}
	}
	return result, nil
}

func (m *mockLockRepo) Update(_ context.Context, lock *model.Lock) error {
	m.locks[lock.ID] = lock
	return nil
}

func (m *mockLockRepo) Delete(_ context.Context, id uint) error {
	delete(m.locks, id)
	return nil
}

func (m *mockLockRepo) ReplaceUnits(_ context.Context, lockID uint, codes []string) error {
	l, ok := m.locks[lockID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	l.Units = nil
	for _, c := range codes {
		l.Units = append(l.Units, model.LockUnit{LockID: lockID, Codset: c})
	}
	return nil
}

func (m *mockLockRepo) ReplacePrograms(_ context.Context, lockID uint, codes []string) error {
	l, ok := m.locks[lockID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	l.Programs = nil
	for _, c := range codes {
		l.Programs = append(l.Programs, model.LockProgram{LockID: lockID, Codare: c})
	}
	return nil
}

func (m *mockLockRepo) AttachUser(_ context.Context, lockID uint, codpes int) error {
	l, ok := m.locks[lockID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for _, u := range l.Users {
		if u.Codpes == codpes {
			return nil
		}
	}
	l.Users = append(l.Users, model.User{Codpes: codpes})
	return nil
}

func (m *mockLockRepo) DetachUser(_ context.Context, lockID uint, codpes int) error {
	l, ok := m.locks[lockID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i, u := range l.Users {
		if u.Codpes == codpes {
			l.Users = append(l.Users[:i], l.Users[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockLockRepo) AttachAdmin(_ context.Context, lockID uint, codpes int) error {
	if m.admins[lockID] == nil {
		m.admins[lockID] = make(map[int]bool)
	}
	m.admins[lockID][codpes] = true
	return nil
}

func (m *mockLockRepo) DetachAdmin(_ context.Context, lockID uint, codpes int) error {
	delete(m.admins[lockID], codpes)
	return nil
}

func (m *mockLockRepo) IsAdmin(_ context.Context, lockID uint, codpes int) (bool, error) {
	return m.admins[lockID][codpes], nil
}

// ── Mock ExternalUserRepository ──

type mockExternalUserRepo struct {
	users  map[uint]*model.ExternalUser
	nextID uint
}

func newMockExternalUserRepo() *mockExternalUserRepo {
	return &mockExternalUserRepo{users: make(map[uint]*model.ExternalUser), nextID: 1}
}

func (m *mockExternalUserRepo) Create(_ context.Context, user *model.ExternalUser) error {
	if user.ID == 0 {
		user.ID = m.nextID
		m.nextID++
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockExternalUserRepo) GetByID(_ context.Context, id uint) (*model.ExternalUser, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockExternalUserRepo) ListByLock(_ context.Context, lockID uint) ([]model.ExternalUser, error) {
	var result []model.ExternalUser
	for _, u := range m.users {
		if u.LockID == lockID {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockExternalUserRepo) Delete(_ context.Context, id uint) error {
	delete(m.users, id)
	return nil
}

// ── Mock AccessLogRepository ──

type mockAccessLogRepo struct {
	logs []model.AccessLog
}

func newMockAccessLogRepo() *mockAccessLogRepo {
	return &mockAccessLogRepo{}
}

func (m *mockAccessLogRepo) UpsertBatch(_ context.Context, logs []model.AccessLog) error {
	seen := make(map[int64]bool, len(m.logs))
	for _, l := range m.logs {
		seen[l.DeviceLogID] = true
	}
	for _, l := range logs {
		if seen[l.DeviceLogID] {
			continue
		}
		l.ID = uint(len(m.logs) + 1)
		m.logs = append(m.logs, l)
	}
	return nil
}

func (m *mockAccessLogRepo) ListByLock(_ context.Context, lockID uint, page, pageSize int) ([]model.AccessLog, int64, error) {
	var all []model.AccessLog
	for _, l := range m.logs {
		if l.LockID == lockID {
			all = append(all, l)
		}
	}
	total := int64(len(all))
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (m *mockAccessLogRepo) MaxDeviceLogID(_ context.Context, lockID uint) (int64, error) {
	var max int64
	for _, l := range m.logs {
		if l.LockID == lockID && l.DeviceLogID > max {
			max = l.DeviceLogID
		}
	}
	return max, nil
}

// ── Mock DirectoryClient ──

type mockDirectoryClient struct {
	personnelByUnit map[string][]replicado.Person
	studentsByArea  map[string][]replicado.Person
	programs        []replicado.Program
	knownPersons    map[int]replicado.Person

	err   error
	calls []string
}

func newMockDirectoryClient() *mockDirectoryClient {
	return &mockDirectoryClient{
		personnelByUnit: make(map[string][]replicado.Person),
		studentsByArea:  make(map[string][]replicado.Person),
		knownPersons:    make(map[int]replicado.Person),
	}
}

func (m *mockDirectoryClient) FindPersonnelByUnits(_ context.Context, codes []string) ([]replicado.Person, error) {
	m.calls = append(m.calls, "personnel")
	if m.err != nil {
		return nil, m.err
	}
	var result []replicado.Person
	for _, c := range codes {
		result = append(result, m.personnelByUnit[c]...)
	}
	return result, nil
}

func (m *mockDirectoryClient) FindStudentsByPrograms(_ context.Context, codes []string) ([]replicado.Person, error) {
	m.calls = append(m.calls, "students")
	if m.err != nil {
		return nil, m.err
	}
	var result []replicado.Person
	for _, c := range codes {
		result = append(result, m.studentsByArea[c]...)
	}
	return result, nil
}

func (m *mockDirectoryClient) ListActivePrograms(_ context.Context) ([]replicado.Program, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.programs, nil
}

func (m *mockDirectoryClient) ValidatePersons(_ context.Context, codpes []int) ([]replicado.Person, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []replicado.Person
	for _, n := range codpes {
		if p, ok := m.knownPersons[n]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

// ── Mock DeviceClient ──

// mockDeviceClient records every call so tests can assert on what reached
// the device and in which order.
type mockDeviceClient struct {
	users      []controlid.User
	accessLogs []controlid.AccessLog

	listErr   error
	createErr error
	updateErr error

	calls        []string
	created      [][]model.RosterEntry
	updated      [][]model.RosterEntry
	photoBatches [][]string
	passwords    map[int64]string
	photos       map[int64][]byte
}

func newMockDeviceClient() *mockDeviceClient {
	return &mockDeviceClient{
		passwords: make(map[int64]string),
		photos:    make(map[int64][]byte),
	}
}

func (m *mockDeviceClient) ListUsers(_ context.Context) ([]controlid.User, error) {
	m.calls = append(m.calls, "list")
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.users, nil
}

func (m *mockDeviceClient) CreateUsers(_ context.Context, entries []model.RosterEntry) error {
	m.calls = append(m.calls, "create")
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, entries)
	for _, e := range entries {
		m.users = append(m.users, controlid.User{
			ID:           int64(e.Key),
			Registration: strconv.Itoa(e.Key),
			Name:         e.Name,
		})
	}
	return nil
}

func (m *mockDeviceClient) UpdateUsers(_ context.Context, entries []model.RosterEntry, needingPhoto []string) error {
	m.calls = append(m.calls, "update")
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = append(m.updated, entries)
	m.photoBatches = append(m.photoBatches, needingPhoto)
	return nil
}

func (m *mockDeviceClient) SetPassword(_ context.Context, userID int64, password string) error {
	m.calls = append(m.calls, "set_password")
	m.passwords[userID] = password
	return nil
}

func (m *mockDeviceClient) SetPhoto(_ context.Context, userID int64, jpeg []byte) error {
	m.calls = append(m.calls, "set_photo")
	m.photos[userID] = jpeg
	return nil
}

func (m *mockDeviceClient) LoadAccessLogs(_ context.Context, afterID int64) ([]controlid.AccessLog, error) {
	m.calls = append(m.calls, "load_logs")
	var result []controlid.AccessLog
	for _, l := range m.accessLogs {
		if l.ID > afterID {
			result = append(result, l)
		}
	}
	return result, nil
}

// ── helpers ──

func newMockRepository() *repository.Repository {
	return &repository.Repository{
		User:         newMockUserRepo(),
		Lock:         newMockLockRepo(),
		ExternalUser: newMockExternalUserRepo(),
		AccessLog:    newMockAccessLogRepo(),
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Device: config.DeviceConfig{
			ExternalIDOffset: 10000,
		},
	}
}

func staticFactory(device *mockDeviceClient) DeviceClientFactory {
	return DeviceClientFactoryFunc(func(_ *model.Lock) DeviceClient { return device })
}
