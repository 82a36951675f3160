package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yukikurage/workforce-api/internal/blob"
	"github.com/yukikurage/workforce-api/internal/constants"
	"github.com/yukikurage/workforce-api/internal/identity"
	"github.com/yukikurage/workforce-api/internal/locker"
	"github.com/yukikurage/workforce-api/internal/logger"
	"github.com/yukikurage/workforce-api/internal/metrics"
	"github.com/yukikurage/workforce-api/internal/models"
	"github.com/yukikurage/workforce-api/internal/repository"
	"github.com/yukikurage/workforce-api/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService handles user lifecycle, credentials and the biometric identity.
type UserService struct {
	userRepo    repository.UserRepository
	assignments *AssignmentManager
	deactivator *Deactivator
	identity    identity.Provider
	blobs       blob.Store
	locker      locker.Locker
	logger      *logger.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	userRepo repository.UserRepository,
	assignments *AssignmentManager,
	deactivator *Deactivator,
	idp identity.Provider,
	blobs blob.Store,
	lk locker.Locker,
	log *logger.Logger,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		assignments: assignments,
		deactivator: deactivator,
		identity:    idp,
		blobs:       blobs,
		locker:      lk,
		logger:      log,
	}
}

// CreateUserInput represents input for creating a user. FacePhoto is a data URL.
type CreateUserInput struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Role        models.Role
	Login       string
	Password    string
	FacePhoto   string
	Work        []uint64
}

// UpdateUserInput represents a partial user update. Nil fields are unchanged;
// an empty FacePhoto removes the face.
type UpdateUserInput struct {
	FirstName   *string
	LastName    *string
	Email       *string
	PhoneNumber *string
	Role        *models.Role
	Login       *string
	Password    *string
	FacePhoto   *string
	Work        *[]uint64
}

// UserResult is a stored user plus the collaborator failures that did not block the write.
type UserResult struct {
	User     *models.User
	Warnings []string
}

// Credentials is the sign-in material of a user
type Credentials struct {
	QRCode    string
	FacePhoto string
}

func (s *UserService) Create(ctx context.Context, actor Actor, input CreateUserInput) (*UserResult, error) {
	if err := actor.requireManager(); err != nil {
		return nil, err
	}

	user := &models.User{
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		PhoneNumber: strings.TrimSpace(input.PhoneNumber),
		Role:        input.Role,
		Login:       strings.TrimSpace(input.Login),
		Active:      true,
	}
	if err := validateUser(user); err != nil {
		return nil, err
	}
	if input.Role == models.RoleAdmin && actor.Role != models.RoleAdmin {
		return nil, forbidden("only admins can create admins")
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, invalid("password", fmt.Sprintf("must be at least %d characters", constants.MinPasswordLength))
	}

	photo, err := parsePhoto(input.FacePhoto)
	if err != nil {
		return nil, err
	}
	if _, err := s.assignments.activeTasks(ctx, uniqueUint64(input.Work)); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, locker.LoginKey(user.Login))
	if err != nil {
		return nil, fmt.Errorf("failed to lock login: %w", err)
	}
	defer unlock()

	if err := s.checkLoginFree(ctx, user.Login); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	result := &UserResult{User: user}

	qr, err := utils.GenerateCredentialsQR(user.Login, input.Password)
	if err != nil {
		result.warn(s.collaboratorFailed("qrcode", user, err))
	}
	user.QRCode = qr

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if len(input.Work) > 0 {
		if _, err := s.assignments.SetUserWork(ctx, user.ID, input.Work); err != nil {
			// The user row is already stored at this point.
			if errors.Is(err, ErrPartialFailure) {
				return nil, err
			}
			return nil, &PartialFailureError{Operation: "createUser", Step: "assign work", Cause: err}
		}
	}

	result.warn(s.bindIdentity(ctx, user, photo))

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to store identity reference: %w", err)
	}

	s.logger.Info("user created", zap.Uint64("user_id", user.ID), zap.String("role", string(user.Role)))

	return s.reload(ctx, result)
}

func (s *UserService) Update(ctx context.Context, actor Actor, id uint64, input UpdateUserInput) (*UserResult, error) {
	if err := actor.requireActive(); err != nil {
		return nil, err
	}
	self := actor.ID == id
	if !actor.Role.CanManage() {
		if !self {
			return nil, forbidden("employees may only update themselves")
		}
		if input.Role != nil || input.Work != nil {
			return nil, forbidden("employees cannot change role or assignments")
		}
	}
	if input.Role != nil && *input.Role == models.RoleAdmin && actor.Role != models.RoleAdmin {
		return nil, forbidden("only admins can grant the ADMIN role")
	}

	var (
		photo    *photoData
		setPhoto = input.FacePhoto != nil
	)
	if setPhoto {
		var err error
		if photo, err = parsePhoto(*input.FacePhoto); err != nil {
			return nil, err
		}
	}

	unlock, err := s.locker.Lock(ctx, locker.UserKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}

	result, err := s.update(ctx, id, input, setPhoto, photo)
	unlock()
	if err != nil {
		return nil, err
	}

	if input.Work != nil {
		if _, err := s.assignments.SetUserWork(ctx, id, *input.Work); err != nil {
			return nil, err
		}
	}

	return s.reload(ctx, result)
}

func (s *UserService) update(ctx context.Context, id uint64, input UpdateUserInput, setPhoto bool, photo *photoData) (*UserResult, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, KindUser, id)
	}
	if !user.Active {
		return nil, invalid("id", "user is inactive")
	}
	if input.Login != nil && strings.TrimSpace(*input.Login) != user.Login {
		return nil, invalid("login", "is immutable")
	}

	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.PhoneNumber != nil {
		user.PhoneNumber = strings.TrimSpace(*input.PhoneNumber)
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
	if err := validateUser(user); err != nil {
		return nil, err
	}

	result := &UserResult{User: user}

	if input.Password != nil {
		if len(*input.Password) < constants.MinPasswordLength {
			return nil, invalid("password", fmt.Sprintf("must be at least %d characters", constants.MinPasswordLength))
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)

		qr, err := utils.GenerateCredentialsQR(user.Login, *input.Password)
		if err != nil {
			result.warn(s.collaboratorFailed("qrcode", user, err))
		} else {
			user.QRCode = qr
		}
	}

	if setPhoto {
		result.warn(s.replaceFace(ctx, user, photo))
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return result, nil
}

// Get returns a user. Employees may only read themselves.
func (s *UserService) Get(ctx context.Context, actor Actor, id uint64) (*models.User, error) {
	if err := actor.requireActive(); err != nil {
		return nil, err
	}
	if actor.isEmployee() && actor.ID != id {
		return nil, forbidden("employees may only read themselves")
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, KindUser, id)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, actor Actor, query repository.Query, opts repository.ListOptions) ([]models.User, int64, error) {
	visibility, err := VisibilityScope(KindUser, actor)
	if err != nil {
		return nil, 0, err
	}
	scopes, err := repository.UserSchema.Scopes(query)
	if err != nil {
		return nil, 0, filterError(err)
	}

	opts.Scopes = append(append(opts.Scopes, visibility...), scopes...)
	users, total, err := s.userRepo.List(ctx, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// Credentials returns the QR code and face photo of a user to the user or a manager
func (s *UserService) Credentials(ctx context.Context, actor Actor, id uint64) (*Credentials, error) {
	user, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	creds := &Credentials{QRCode: user.QRCode}
	if user.FacePhotoKey == "" {
		return creds, nil
	}

	obj, err := s.blobs.Get(ctx, user.FacePhotoKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return creds, nil
		}
		return nil, &CollaboratorError{Name: "blob", Cause: err}
	}
	creds.FacePhoto = utils.EncodeDataURL(obj.ContentType, obj.Data)
	return creds, nil
}

func (s *UserService) Deactivate(ctx context.Context, actor Actor, id uint64) error {
	if err := actor.requireManager(); err != nil {
		return err
	}
	return s.deactivator.Deactivate(ctx, KindUser, id)
}

// bindIdentity registers the recognition subject and attaches the face, if any.
// It returns the warning of the first failing step.
func (s *UserService) bindIdentity(ctx context.Context, user *models.User, photo *photoData) string {
	subjectID, err := s.identity.Register(ctx, strconv.FormatUint(user.ID, 10))
	if err != nil {
		return s.collaboratorFailed("identity", user, err)
	}
	user.FaceSubjectID = subjectID

	if photo == nil {
		return ""
	}
	return s.storeFace(ctx, user, photo)
}

// replaceFace removes the current face and attaches photo. A nil photo only removes.
func (s *UserService) replaceFace(ctx context.Context, user *models.User, photo *photoData) string {
	if user.FaceSubjectID != "" {
		if err := s.identity.RemoveFace(ctx, user.FaceSubjectID); err != nil {
			return s.collaboratorFailed("identity", user, err)
		}
	}

	if photo == nil {
		if user.FacePhotoKey != "" {
			if err := s.blobs.Delete(ctx, user.FacePhotoKey); err != nil && !errors.Is(err, blob.ErrNotFound) {
				return s.collaboratorFailed("blob", user, err)
			}
			user.FacePhotoKey = ""
		}
		return ""
	}

	if user.FaceSubjectID == "" {
		return s.bindIdentity(ctx, user, photo)
	}
	return s.storeFace(ctx, user, photo)
}

func (s *UserService) storeFace(ctx context.Context, user *models.User, photo *photoData) string {
	key := blob.FaceKey(user.ID)
	if err := s.blobs.Put(ctx, key, blob.Object{ContentType: photo.contentType, Data: photo.data}); err != nil {
		return s.collaboratorFailed("blob", user, err)
	}
	user.FacePhotoKey = key

	if user.FaceSubjectID == "" {
		return ""
	}
	if err := s.identity.AttachFace(ctx, user.FaceSubjectID, photo.data); err != nil {
		return s.collaboratorFailed("identity", user, err)
	}
	return ""
}

func (s *UserService) collaboratorFailed(name string, user *models.User, err error) string {
	metrics.CollaboratorFailures.WithLabelValues(name).Inc()
	s.logger.Warn("collaborator call failed",
		zap.String("collaborator", name),
		zap.Uint64("user_id", user.ID),
		zap.Error(err),
	)
	return (&CollaboratorError{Name: name, Cause: err}).Error()
}

func (s *UserService) checkLoginFree(ctx context.Context, login string) error {
	_, err := s.userRepo.FindActiveByLogin(ctx, login)
	if err == nil {
		return &AlreadyTakenError{Login: login}
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check login: %w", err)
	}
	return nil
}

func (s *UserService) reload(ctx context.Context, result *UserResult) (*UserResult, error) {
	user, err := s.userRepo.FindByID(ctx, result.User.ID)
	if err != nil {
		return nil, notFoundOr(err, KindUser, result.User.ID)
	}
	result.User = user
	return result, nil
}

func (r *UserResult) warn(msg string) {
	if msg != "" {
		r.Warnings = append(r.Warnings, msg)
	}
}

type photoData struct {
	contentType string
	data        []byte
}

// parsePhoto decodes an optional data URL. An empty string yields nil.
func parsePhoto(dataURL string) (*photoData, error) {
	if strings.TrimSpace(dataURL) == "" {
		return nil, nil
	}
	contentType, data, err := utils.ParseDataURL(dataURL)
	if err != nil {
		return nil, invalid("facePhoto", "must be a base64 data URL")
	}
	return &photoData{contentType: contentType, data: data}, nil
}

func validateUser(u *models.User) error {
	switch {
	case u.FirstName == "":
		return invalid("firstName", "is required")
	case u.LastName == "":
		return invalid("lastName", "is required")
	case u.Email == "" || !strings.Contains(u.Email, "@"):
		return invalid("email", "must be a valid address")
	case u.PhoneNumber == "":
		return invalid("phoneNumber", "is required")
	case !u.Role.Valid():
		return invalid("role", "must be one of EMPLOYEE, MANAGER, ADMIN")
	case u.Login == "":
		return invalid("login", "is required")
	}
	return nil
}
