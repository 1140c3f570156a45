package service

import (
	"context"
	"time"

	"telemed/internal/domain"
)

// Фиксированные часы для детерминированных проверок времени.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type fakeLocker struct {
	err   error
	calls int
}

func (l *fakeLocker) WithDoctorLock(ctx context.Context, doctorID int64, fn func(ctx context.Context) error) error {
	l.calls++
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}

type fakeUserRepo struct {
	users map[int64]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	m := make(map[int64]*domain.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return &fakeUserRepo{users: m}
}

func (r *fakeUserRepo) Create(ctx context.Context, dto domain.CreateUserDTO, passwordHash string, doctor *domain.DoctorProfileDTO) (int64, error) {
	id := int64(len(r.users) + 1)
	user := &domain.User{
		ID:           id,
		Email:        dto.Email,
		Name:         dto.Name,
		PasswordHash: passwordHash,
		Role:         dto.Role,
		IsActive:     true,
	}
	if doctor != nil {
		user.Specialty = doctor.Specialty
		user.Experience = doctor.Experience
		user.Description = doctor.Description
		user.VerificationStatus = domain.VerificationStatusPending
	}
	r.users[id] = user
	return id, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, id int64, dto domain.UpdateUserDTO) error {
	user, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	if dto.Name != nil {
		user.Name = *dto.Name
	}
	if dto.Email != nil {
		user.Email = *dto.Email
	}
	return nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	user, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *fakeUserRepo) ListDoctors(ctx context.Context, filter domain.DoctorFilter) ([]domain.User, int, error) {
	result := make([]domain.User, 0)
	for _, user := range r.users {
		if user.Role != domain.UserRoleDoctor {
			continue
		}
		if filter.VerificationStatus != nil && user.VerificationStatus != *filter.VerificationStatus {
			continue
		}
		if filter.Specialty != nil && user.Specialty != *filter.Specialty {
			continue
		}
		result = append(result, *user)
	}
	return result, len(result), nil
}

func (r *fakeUserRepo) UpdateVerification(ctx context.Context, doctorID int64, status domain.VerificationStatus) error {
	user, ok := r.users[doctorID]
	if !ok {
		return domain.ErrNotFound
	}
	user.VerificationStatus = status
	return nil
}

func (r *fakeUserRepo) UpdateCredentialURL(ctx context.Context, doctorID int64, url string) error {
	user, ok := r.users[doctorID]
	if !ok {
		return domain.ErrNotFound
	}
	user.CredentialURL = url
	return nil
}

type fakeAvailabilityRepo struct {
	blocks   []domain.AvailabilityBlock
	nextID   int64
	released [][2]time.Time
	listErr  error
}

func (r *fakeAvailabilityRepo) Create(ctx context.Context, doctorID int64, dto domain.CreateAvailabilityDTO) (int64, error) {
	r.nextID++
	tz := dto.Timezone
	if tz == "" {
		tz = "UTC"
	}
	r.blocks = append(r.blocks, domain.AvailabilityBlock{
		ID:        r.nextID,
		DoctorID:  doctorID,
		StartTime: dto.StartTime,
		EndTime:   dto.EndTime,
		Status:    domain.AvailabilityStatusAvailable,
		Timezone:  tz,
	})
	return r.nextID, nil
}

func (r *fakeAvailabilityRepo) GetByID(ctx context.Context, id int64) (*domain.AvailabilityBlock, error) {
	for i := range r.blocks {
		if r.blocks[i].ID == id {
			copied := r.blocks[i]
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeAvailabilityRepo) List(ctx context.Context, filter domain.AvailabilityFilter) ([]domain.AvailabilityBlock, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}

	result := make([]domain.AvailabilityBlock, 0)
	for _, block := range r.blocks {
		if filter.DoctorID != nil && block.DoctorID != *filter.DoctorID {
			continue
		}
		if filter.Status != nil && block.Status != *filter.Status {
			continue
		}
		if filter.StartDate != nil && !block.EndTime.After(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && !block.StartTime.Before(*filter.EndDate) {
			continue
		}
		result = append(result, block)
	}
	return result, nil
}

func (r *fakeAvailabilityRepo) UpdateStatus(ctx context.Context, id int64, status domain.AvailabilityStatus) error {
	for i := range r.blocks {
		if r.blocks[i].ID == id {
			r.blocks[i].Status = status
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeAvailabilityRepo) ReleaseWindow(ctx context.Context, doctorID int64, start, end time.Time) error {
	r.released = append(r.released, [2]time.Time{start, end})
	return nil
}

func (r *fakeAvailabilityRepo) Delete(ctx context.Context, id int64) error {
	for i := range r.blocks {
		if r.blocks[i].ID == id {
			if r.blocks[i].Status == domain.AvailabilityStatusBooked {
				return domain.ErrNotFound
			}
			r.blocks = append(r.blocks[:i], r.blocks[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

type fakeAppointmentRepo struct {
	appointments []domain.Appointment
	nextID       int64
	users        *fakeUserRepo
	creditCost   int
	createErr    error
}

func (r *fakeAppointmentRepo) CreateAtomic(ctx context.Context, patientID int64, dto domain.BookAppointmentDTO, creditCost int) (*domain.Appointment, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}

	for _, a := range r.appointments {
		if a.DoctorID != dto.DoctorID || a.Status == domain.AppointmentStatusCancelled {
			continue
		}
		if a.StartTime.Before(dto.EndTime) && dto.StartTime.Before(a.EndTime) {
			return nil, domain.ErrStorageConflict
		}
	}

	if r.users != nil {
		patient := r.users.users[patientID]
		if patient == nil || patient.Credits < creditCost {
			return nil, domain.ErrInsufficientCredits
		}
		patient.Credits -= creditCost
		if doctor := r.users.users[dto.DoctorID]; doctor != nil {
			doctor.Credits += creditCost
		}
	}

	r.nextID++
	appointment := domain.Appointment{
		ID:                 r.nextID,
		PatientID:          patientID,
		DoctorID:           dto.DoctorID,
		StartTime:          dto.StartTime,
		EndTime:            dto.EndTime,
		Status:             domain.AppointmentStatusScheduled,
		PatientDescription: dto.Description,
	}
	r.appointments = append(r.appointments, appointment)
	return &appointment, nil
}

func (r *fakeAppointmentRepo) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	for i := range r.appointments {
		if r.appointments[i].ID == id {
			copied := r.appointments[i]
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeAppointmentRepo) matches(a domain.Appointment, filter domain.AppointmentFilter) bool {
	if filter.PatientID != nil && a.PatientID != *filter.PatientID {
		return false
	}
	if filter.DoctorID != nil && a.DoctorID != *filter.DoctorID {
		return false
	}
	if filter.Status != nil && a.Status != *filter.Status {
		return false
	}
	if filter.ExcludeStatus != nil && a.Status == *filter.ExcludeStatus {
		return false
	}
	if filter.StartDate != nil && !a.EndTime.After(*filter.StartDate) {
		return false
	}
	if filter.EndDate != nil && !a.StartTime.Before(*filter.EndDate) {
		return false
	}
	return true
}

func (r *fakeAppointmentRepo) List(ctx context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, error) {
	result := make([]domain.Appointment, 0)
	for _, a := range r.appointments {
		if r.matches(a, filter) {
			result = append(result, a)
		}
	}
	return result, nil
}

func (r *fakeAppointmentRepo) CountByFilter(ctx context.Context, filter domain.AppointmentFilter) (int, error) {
	list, _ := r.List(ctx, filter)
	return len(list), nil
}

func (r *fakeAppointmentRepo) UpdateStatusCAS(ctx context.Context, id int64, expected, next domain.AppointmentStatus) (*domain.Appointment, error) {
	for i := range r.appointments {
		if r.appointments[i].ID != id {
			continue
		}
		if r.appointments[i].Status != expected {
			return nil, domain.ErrStorageConflict
		}
		r.appointments[i].Status = next
		copied := r.appointments[i]
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (r *fakeAppointmentRepo) UpdateNotes(ctx context.Context, id int64, notes string) error {
	for i := range r.appointments {
		if r.appointments[i].ID == id {
			r.appointments[i].Notes = notes
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeAppointmentRepo) SetVideoSession(ctx context.Context, id int64, sessionID, token string) error {
	for i := range r.appointments {
		if r.appointments[i].ID == id {
			r.appointments[i].VideoSessionID = &sessionID
			r.appointments[i].VideoSessionToken = &token
			return nil
		}
	}
	return domain.ErrNotFound
}

type fakeAuthRepo struct {
	sessions map[string]domain.Session
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{sessions: make(map[string]domain.Session)}
}

func (r *fakeAuthRepo) CreateSession(ctx context.Context, session domain.Session) error {
	r.sessions[session.ID] = session
	return nil
}

func (r *fakeAuthRepo) GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	for _, session := range r.sessions {
		if session.RefreshToken == refreshToken {
			copied := session
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeAuthRepo) DeleteSession(ctx context.Context, id string) error {
	if _, ok := r.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *fakeAuthRepo) DeleteSessionsByUserID(ctx context.Context, userID int64) error {
	for id, session := range r.sessions {
		if session.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

type fakePayoutRepo struct {
	payouts []domain.Payout
	nextID  int64
	users   *fakeUserRepo
}

func (r *fakePayoutRepo) Create(ctx context.Context, doctorID int64, credits int) (int64, error) {
	if r.users != nil {
		doctor := r.users.users[doctorID]
		if doctor == nil || doctor.Credits < credits {
			return 0, domain.ErrInsufficientCredits
		}
		doctor.Credits -= credits
	}

	r.nextID++
	r.payouts = append(r.payouts, domain.Payout{
		ID:       r.nextID,
		DoctorID: doctorID,
		Credits:  credits,
		Status:   domain.PayoutStatusPending,
	})
	return r.nextID, nil
}

func (r *fakePayoutRepo) GetByID(ctx context.Context, id int64) (*domain.Payout, error) {
	for i := range r.payouts {
		if r.payouts[i].ID == id {
			copied := r.payouts[i]
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakePayoutRepo) List(ctx context.Context, filter domain.PayoutFilter) ([]domain.Payout, error) {
	result := make([]domain.Payout, 0)
	for _, p := range r.payouts {
		if filter.DoctorID != nil && p.DoctorID != *filter.DoctorID {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

func (r *fakePayoutRepo) ApproveCAS(ctx context.Context, id int64) (*domain.Payout, error) {
	for i := range r.payouts {
		if r.payouts[i].ID != id {
			continue
		}
		if r.payouts[i].Status != domain.PayoutStatusPending {
			return nil, domain.ErrStorageConflict
		}
		r.payouts[i].Status = domain.PayoutStatusApproved
		copied := r.payouts[i]
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (r *fakePayoutRepo) EarningsByDoctor(ctx context.Context, doctorID int64) (*domain.Earnings, error) {
	doctor, ok := r.users.users[doctorID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	earnings := &domain.Earnings{Credits: doctor.Credits}
	for _, p := range r.payouts {
		if p.DoctorID != doctorID {
			continue
		}
		switch p.Status {
		case domain.PayoutStatusPending:
			earnings.PendingPayouts += p.Credits
		case domain.PayoutStatusApproved:
			earnings.PaidOut += p.Credits
		}
	}
	return earnings, nil
}
