package models

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/utils"
	"gorm.io/gorm"
)

const MinPasswordLength = 6

type User struct {
	ID        string    `gorm:"primary_key;size:36" json:"id"`
	Email     string    `gorm:"size:191;not null;uniqueIndex" json:"email"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	IsActive  *bool     `gorm:"not null;default:true" json:"isActive"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"isAdmin"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// HasAdminAccess is true for flagged users and for allow-listed emails.
func (u User) HasAdminAccess() bool {
	return u.IsAdmin || config.IsAdminEmail(u.Email)
}

type NewUser struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone"`
}

type UpdateProfileInput struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

type LoginInfo struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsAdmin   bool      `json:"isAdmin"`
	User      *User     `json:"user"`
}

/*
caches:
	RevokedToken:$jti
	SessionEpoch:$userId
*/

// SessionEpochKey holds the unix time before which the user's tokens are void.
func SessionEpochKey(userId string) string {
	return "SessionEpoch:" + userId
}

func (input *NewUser) validate() error {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", utils.ErrInvalidInput)
	}
	if !utils.IsValidEmail(input.Email) {
		return fmt.Errorf("%w: invalid email address", utils.ErrInvalidInput)
	}
	if len(input.Password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", utils.ErrInvalidInput, MinPasswordLength)
	}
	if input.Phone != "" {
		phone, err := utils.FormatPhoneNumber(input.Phone, utils.CountryCode)
		if err != nil {
			return fmt.Errorf("%w: %s", utils.ErrInvalidInput, err.Error())
		}
		input.Phone = phone
	}
	return nil
}

// Register creates the account and signs the user in.
func Register(ctx context.Context, input *NewUser) (*LoginInfo, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&User{}).Where("email = ?", input.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.ErrEmailTaken
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		Email:    input.Email,
		Name:     html.EscapeString(input.Name),
		Phone:    input.Phone,
		Password: string(hashedPassword),
		IsActive: utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, utils.ErrEmailTaken
		}
		return nil, err
	}

	return issueToken(&user)
}

func Login(ctx context.Context, email string, password string) (*LoginInfo, error) {
	db := config.GetDB()
	email = strings.ToLower(strings.TrimSpace(email))

	var user User
	if err := db.WithContext(ctx).Where("email = ?", email).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrInvalidLogin
		}
		return nil, err
	}

	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, utils.ErrInvalidLogin
	}
	if !utils.DereferencePtr(user.IsActive, true) {
		return nil, fmt.Errorf("user is disabled: %w", utils.ErrForbidden)
	}

	return issueToken(&user)
}

func issueToken(user *User) (*LoginInfo, error) {
	admin := user.HasAdminAccess()
	token, claim, err := utils.JwtGenerate(user.ID, user.Email, admin)
	if err != nil {
		return nil, err
	}
	return &LoginInfo{
		Token:     token,
		ExpiresAt: time.Unix(claim.ExpiresAt, 0).UTC(),
		IsAdmin:   admin,
		User:      user,
	}, nil
}

// Logout revokes the current token until it would have expired anyway.
func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, utils.ErrUnauthorized
	}
	claim, err := utils.ParseClaims(token)
	if err != nil {
		return false, err
	}
	ttl := time.Until(time.Unix(claim.ExpiresAt, 0))
	if ttl <= 0 {
		return true, nil
	}
	if err := config.SetRedisValue(utils.RevokedTokenKey(claim.Id), claim.UserId, ttl); err != nil {
		return false, err
	}
	return true, nil
}

// IsTokenRevoked reports whether claim was logged out or predates the
// user's last password change.
func IsTokenRevoked(claim *utils.JwtCustomClaim) (bool, error) {
	revoked, err := config.RedisKeyExists(utils.RevokedTokenKey(claim.Id))
	if err != nil || revoked {
		return revoked, err
	}
	epoch, exists, err := config.GetRedisValue(SessionEpochKey(claim.UserId))
	if err != nil || !exists {
		return false, err
	}
	var since int64
	if _, err := fmt.Sscan(epoch, &since); err != nil {
		return false, nil
	}
	return claim.IssuedAt < since, nil
}

func GetCurrentUser(ctx context.Context) (*User, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}
	return GetUser(ctx, userId)
}

func GetUser(ctx context.Context, id string) (*User, error) {
	db := config.GetDB()
	var result User

	err := db.WithContext(ctx).Where("id = ?", id).Take(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

func UpdateProfile(ctx context.Context, input *UpdateProfileInput) (*User, error) {
	user, err := GetCurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", utils.ErrInvalidInput)
		}
		updates["name"] = html.EscapeString(name)
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone != "" {
			phone, err = utils.FormatPhoneNumber(phone, utils.CountryCode)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", utils.ErrInvalidInput, err.Error())
			}
		}
		updates["phone"] = phone
	}
	if len(updates) == 0 {
		return user, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return GetUser(ctx, user.ID)
}

// ChangePassword replaces the password and voids every token issued before now.
func ChangePassword(ctx context.Context, oldPassword string, newPassword string) (*User, error) {
	user, err := GetCurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ComparePassword(user.Password, oldPassword); err != nil {
		return nil, fmt.Errorf("%w: old password is wrong", utils.ErrInvalidInput)
	}
	if len(newPassword) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", utils.ErrInvalidInput, MinPasswordLength)
	}

	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(user).UpdateColumn("password", string(hashedPassword)).Error; err != nil {
		return nil, err
	}

	if err := config.SetRedisValue(SessionEpochKey(user.ID), fmt.Sprint(time.Now().Unix()), 0); err != nil {
		return nil, err
	}
	return user, nil
}

/* admin */

func GetAllUsers(ctx context.Context) ([]*User, error) {
	db := config.GetDB()
	var results []*User
	if err := db.WithContext(ctx).Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetUsersByIds returns users keyed by id. Missing ids are absent from the map.
func GetUsersByIds(ctx context.Context, ids []string) (map[string]*User, error) {
	db := config.GetDB()
	var results []*User
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error; err != nil {
		return nil, err
	}
	byId := make(map[string]*User, len(results))
	for _, u := range results {
		byId[u.ID] = u
	}
	return byId, nil
}

func SetUserActive(ctx context.Context, id string, isActive bool) (*User, error) {
	user, err := GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(user).UpdateColumn("is_active", isActive).Error; err != nil {
		return nil, err
	}
	user.IsActive = &isActive
	if !isActive {
		// void every live token of the disabled account
		if err := config.SetRedisValue(SessionEpochKey(user.ID), fmt.Sprint(time.Now().Unix()+1), 0); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// UpsertAdmin creates or promotes an admin account. Used by cmd/seed-admin.
func UpsertAdmin(ctx context.Context, email string, name string, password string) (*User, bool, error) {
	input := NewUser{Name: name, Email: email, Password: password}
	if err := input.validate(); err != nil {
		return nil, false, err
	}
	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, false, err
	}

	db := config.GetDB()
	var user User
	err = db.WithContext(ctx).Where("email = ?", input.Email).Take(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = User{
			Email:    input.Email,
			Name:     input.Name,
			Password: string(hashedPassword),
			IsActive: utils.NewTrue(),
			IsAdmin:  true,
		}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, false, err
		}
		return &user, true, nil
	}

	if err := db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"name":      input.Name,
		"password":  string(hashedPassword),
		"is_active": true,
		"is_admin":  true,
	}).Error; err != nil {
		return nil, false, err
	}
	return &user, false, nil
}
