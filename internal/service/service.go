package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/formalys/formalys-server/internal/models"
	"github.com/formalys/formalys-server/internal/notification"
	"github.com/formalys/formalys-server/internal/payment"
	"github.com/formalys/formalys-server/internal/repository"
	"github.com/formalys/formalys-server/internal/utils"
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)

	// Profiles
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.Profile, error)
	ListProfiles(ctx context.Context) ([]models.Profile, error)

	// Formality lifecycle
	CreateFormality(ctx context.Context, userID string, req models.CreateFormalityRequest) (*models.FormalityDetail, error)
	ListFormalities(ctx context.Context, userID string) ([]models.FormalityDetail, error)
	GetFormality(ctx context.Context, userID string, formalityID int64) (*models.FormalityDetail, error)
	UpdateFormality(ctx context.Context, userID string, formalityID int64, req models.UpdateFormalityRequest) (*models.FormalityDetail, error)
	DeleteFormality(ctx context.Context, userID string, formalityID int64) error
	AddClients(ctx context.Context, userID string, formalityID int64, req models.AddClientsRequest) error
	RemoveClient(ctx context.Context, userID string, formalityID int64, clientID string) error
	GetHistory(ctx context.Context, userID string, formalityID int64) ([]models.HistoryEntry, error)

	// Pricing and payment
	GetPrice(ctx context.Context, userID string, formalityID int64) (*models.PriceBreakdown, error)
	GeneratePaymentLink(ctx context.Context, userID string, formalityID int64, req models.PaymentLinkRequest) (*models.PaymentLinkResponse, error)
	SendPaymentLink(ctx context.Context, userID string, formalityID int64, req models.SendPaymentLinkRequest) error
	CreateCheckoutSession(ctx context.Context, req models.CheckoutSessionRequest) (*models.CheckoutSessionResponse, error)
	HandleCheckoutCompleted(ctx context.Context, completed *payment.CheckoutCompleted) error

	// Messaging
	GetMessages(ctx context.Context, userID string, formalityID int64) ([]models.Message, error)
	SendMessage(ctx context.Context, userID string, formalityID int64, req models.SendMessageRequest) (*models.Message, error)
	MarkMessagesRead(ctx context.Context, userID string, formalityID int64) error
	GetUnreadMessages(ctx context.Context, userID string) ([]models.Message, error)

	// Reference data
	ListTribunals(ctx context.Context) ([]models.Tribunal, error)
	ListTariffs(ctx context.Context) ([]models.Tariff, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo                  repository.Repository
	notifier              notification.Dispatcher
	gateway               payment.Gateway
	jwtSecret             []byte
	tokenDuration         time.Duration
	publicBaseURL         string
	defaultFormalistEmail string
	logger                *utils.Logger
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(
	repo repository.Repository,
	notifier notification.Dispatcher,
	gateway payment.Gateway,
	jwtSecret string,
	publicBaseURL string,
	defaultFormalistEmail string,
) Service {
	return &DefaultService{
		repo:                  repo,
		notifier:              notifier,
		gateway:               gateway,
		jwtSecret:             []byte(jwtSecret),
		tokenDuration:         24 * time.Hour, // 24 hours token validity
		publicBaseURL:         publicBaseURL,
		defaultFormalistEmail: defaultFormalistEmail,
		logger:                utils.NewLogger(),
	}
}

// Authentication methods
func (s *DefaultService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	// Check if a profile already exists
	existing, err := s.repo.GetProfileByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error checking profile existence: %w", err)
	}

	if existing != nil {
		return nil, ErrEmailExists
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	profile := &models.Profile{
		ID:        uuid.New().String(),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		Password:  string(hashedPassword),
	}

	if err := s.repo.CreateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("error creating profile: %w", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		UserID:    profile.ID,
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Role:      profile.Role,
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	profile, err := s.repo.GetProfileByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error getting profile: %w", err)
	}

	if profile == nil {
		return nil, ErrInvalidCredentials
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Generate JWT token
	token, err := s.generateJWT(profile)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		UserID:    profile.ID,
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Role:      profile.Role,
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

// Profile methods
func (s *DefaultService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.repo.GetProfileByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting profile: %w", err)
	}

	if profile == nil {
		return nil, ErrProfileNotFound
	}

	return profile, nil
}

func (s *DefaultService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.Profile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != "" {
		profile.FirstName = req.FirstName
	}
	if req.LastName != "" {
		profile.LastName = req.LastName
	}
	if req.Email != "" && req.Email != profile.Email {
		existing, err := s.repo.GetProfileByEmail(ctx, req.Email)
		if err != nil {
			return nil, fmt.Errorf("error checking profile existence: %w", err)
		}
		if existing != nil {
			return nil, ErrEmailExists
		}
		profile.Email = req.Email
	}

	if err := s.repo.UpdateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("error updating profile: %w", err)
	}

	return profile, nil
}

func (s *DefaultService) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	profiles, err := s.repo.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing profiles: %w", err)
	}

	return profiles, nil
}

// Reference data methods
func (s *DefaultService) ListTribunals(ctx context.Context) ([]models.Tribunal, error) {
	tribunals, err := s.repo.ListTribunals(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing tribunals: %w", err)
	}

	return tribunals, nil
}

func (s *DefaultService) ListTariffs(ctx context.Context) ([]models.Tariff, error) {
	tariffs, err := s.repo.ListTariffs(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing tariffs: %w", err)
	}

	return tariffs, nil
}

// Helper methods
func (s *DefaultService) generateJWT(profile *models.Profile) (string, error) {
	expirationTime := time.Now().Add(s.tokenDuration)

	claims := jwt.MapClaims{
		"sub": profile.ID, // subject
		"exp": expirationTime.Unix(),
		"iat": time.Now().Unix(), // issued at
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
