package authservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/wareqa/creditledger/internal/domain"
	"github.com/wareqa/creditledger/pkg/auth"
)

func NewMockService(t *testing.T) (*Service, *MockRepo, *MockAccountCreator) {
	ctrl := gomock.NewController(t)
	userRepo := NewMockRepo(ctrl)
	accountCreator := NewMockAccountCreator(ctrl)
	service := New(userRepo, accountCreator, &auth.HashService{}, &auth.JWTService{})
	defer ctrl.Finish()
	return service, userRepo, accountCreator
}

func TestRegister(t *testing.T) {
	email := "student@university.edu.sa"

	tests := []struct {
		name          string
		prepareMock   func(userRepo *MockRepo, accountCreator *MockAccountCreator)
		expectedError error
	}{
		{
			name: "New user gets a uuid, hashed password and an account",
			prepareMock: func(userRepo *MockRepo, accountCreator *MockAccountCreator) {
				userRepo.EXPECT().FindByEmail(gomock.Any(), email).Return(nil, nil)
				userRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, user *domain.User) (*domain.User, error) {
						assert.NotEmpty(t, user.ID)
						assert.Equal(t, email, user.Email)
						assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
						return user, nil
					},
				)
				accountCreator.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name: "Duplicate email is rejected",
			prepareMock: func(userRepo *MockRepo, _ *MockAccountCreator) {
				userRepo.EXPECT().FindByEmail(gomock.Any(), email).
					Return(&domain.User{ID: "existing", Email: email}, nil)
			},
			expectedError: errors.New("email already taken"),
		},
		{
			name: "Account provisioning failure fails registration",
			prepareMock: func(userRepo *MockRepo, accountCreator *MockAccountCreator) {
				userRepo.EXPECT().FindByEmail(gomock.Any(), email).Return(nil, nil)
				userRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, user *domain.User) (*domain.User, error) {
						return user, nil
					},
				)
				accountCreator.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).Return(errors.New("db down"))
			},
			expectedError: errors.New("db down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, userRepo, accountCreator := NewMockService(t)
			tt.prepareMock(userRepo, accountCreator)

			user, err := service.Register(context.Background(), email, "s3cret-pass")
			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, user)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	email := "student@university.edu.sa"
	hashService := &auth.HashService{}
	passwordHash, err := hashService.HashPassword("s3cret-pass")
	assert.NoError(t, err)

	tests := []struct {
		name          string
		password      string
		prepareMock   func(userRepo *MockRepo)
		expectedError error
	}{
		{
			name:     "Valid credentials",
			password: "s3cret-pass",
			prepareMock: func(userRepo *MockRepo) {
				userRepo.EXPECT().FindByEmail(gomock.Any(), email).
					Return(&domain.User{ID: "a81bc81b-dead-4e5d-abff-90865d1e13b1", Email: email, PasswordHash: passwordHash}, nil)
			},
		},
		{
			name:     "Wrong password",
			password: "wrong",
			prepareMock: func(userRepo *MockRepo) {
				userRepo.EXPECT().FindByEmail(gomock.Any(), email).
					Return(&domain.User{ID: "a81bc81b-dead-4e5d-abff-90865d1e13b1", Email: email, PasswordHash: passwordHash}, nil)
			},
			expectedError: errors.New("invalid credentials"),
		},
		{
			name:     "Unknown email",
			password: "s3cret-pass",
			prepareMock: func(userRepo *MockRepo) {
				userRepo.EXPECT().FindByEmail(gomock.Any(), email).Return(nil, nil)
			},
			expectedError: errors.New("invalid credentials"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, userRepo, _ := NewMockService(t)
			tt.prepareMock(userRepo)

			user, err := service.Authenticate(context.Background(), email, tt.password)
			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, email, user.Email)
			}
		})
	}
}

func TestGenerateToken(t *testing.T) {
	service, _, _ := NewMockService(t)

	token, err := service.GenerateToken("a81bc81b-dead-4e5d-abff-90865d1e13b1", true)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := (&auth.JWTService{}).ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "a81bc81b-dead-4e5d-abff-90865d1e13b1", claims.UserID)
	assert.True(t, claims.IsAdmin)
}
