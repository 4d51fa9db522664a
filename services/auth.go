package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"socialfeed/auth"
	"socialfeed/models"
	"socialfeed/repositories"
)

type AuthService struct {
	store  *repositories.Store
	tokens *auth.TokenManager
}

type AuthResult struct {
	User    models.AccountView `json:"user"`
	Token   string             `json:"token"`
	Message string             `json:"message"`
}

type SignupInput struct {
	Username  string   `json:"username" binding:"required,username"`
	Email     string   `json:"email" binding:"required,email"`
	Password  string   `json:"password" binding:"required,min=6,max=72"`
	FullName  string   `json:"fullName" binding:"required,max=100"`
	Bio       string   `json:"bio" binding:"max=300"`
	Interests []string `json:"interests" binding:"omitempty,dive,objectid"`
}

// Login checks credentials against the account whose username or email
// matches login.
func (s *AuthService) Login(ctx context.Context, login, password string) (*AuthResult, error) {
	if strings.TrimSpace(login) == "" || password == "" {
		return nil, newError(ErrValidation, "Username and password are required")
	}

	user, err := s.store.Users.FindByLogin(ctx, login)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(ErrInvalidCredentials, "Invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.ComparePassword(password) {
		return nil, newError(ErrInvalidCredentials, "Invalid credentials")
	}
	return s.issue(ctx, user, "Login successful")
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		FullName: strings.TrimSpace(in.FullName),
		Bio:      strings.TrimSpace(in.Bio),
		Role:     models.RoleUser,
	}
	for _, hex := range in.Interests {
		id, err := ParseID(hex)
		if err != nil {
			return nil, newError(ErrValidation, "Invalid interest id")
		}
		user.Interests = append(user.Interests, id)
	}
	user.Interests = models.DedupeIDs(user.Interests)
	if err := user.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, newError(ErrConflict, "Username or email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.issue(ctx, user, "Signup successful")
}

// Authenticate resolves a bearer token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	id, err := ParseID(userID)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	return s.store.Users.FindByID(ctx, id)
}

func (s *AuthService) issue(ctx context.Context, user *models.User, message string) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	p := populator{store: s.store}
	categories, err := p.categories(ctx, user.Interests)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user.Account(categories), Token: token, Message: message}, nil
}
