package service

import (
	"errors"
	"time"

	"github.com/shipline-next/internal/config"
	"github.com/shipline-next/internal/constants"
	"github.com/shipline-next/internal/logger"
	"github.com/shipline-next/internal/models"
	"github.com/shipline-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 员工认证服务
type AuthService struct {
	cfg       *config.Config
	staffRepo repository.StaffRepository
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg *config.Config, staffRepo repository.StaffRepository) *AuthService {
	return &AuthService{
		cfg:       cfg,
		staffRepo: staffRepo,
	}
}

// HashPassword 使用 bcrypt 加密密码
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 验证密码
func (s *AuthService) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// JWTClaims JWT 声明
type JWTClaims struct {
	StaffID  uint   `json:"staff_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateJWT 生成 JWT Token
func (s *AuthService) GenerateJWT(staff *models.Staff) (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Duration(s.cfg.JWT.ExpireHours) * time.Hour)

	claims := JWTClaims{
		StaffID:  staff.ID,
		Username: staff.Username,
		Role:     staff.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ParseJWT 解析 JWT Token
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// Login 员工登录
func (s *AuthService) Login(username, password string) (*models.Staff, string, time.Time, error) {
	staff, err := s.staffRepo.GetByUsername(username)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if staff == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := s.VerifyPassword(staff.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if staff.Status != constants.StaffStatusActive {
		return nil, "", time.Time{}, ErrStaffDisabled
	}

	token, expiresAt, err := s.GenerateJWT(staff)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	logger.Infow("staff_login", "staff_id", staff.ID, "role", staff.Role)
	return staff, token, expiresAt, nil
}

// CreateStaffInput 创建员工输入
type CreateStaffInput struct {
	Username    string
	Password    string
	DisplayName string
	Role        string
}

// CreateStaff 创建员工账号（仅管理员调用方可达）
func (s *AuthService) CreateStaff(input CreateStaffInput) (*models.Staff, error) {
	if !constants.IsValidRole(input.Role) {
		return nil, ErrInvalidRole
	}
	hash, err := s.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	staff := &models.Staff{
		Username:     input.Username,
		PasswordHash: hash,
		DisplayName:  input.DisplayName,
		Role:         input.Role,
		Status:       constants.StaffStatusActive,
	}
	if err := s.staffRepo.Create(staff); err != nil {
		return nil, err
	}
	logger.Infow("staff_created", "staff_id", staff.ID, "role", staff.Role)
	return staff, nil
}

// SetStaffStatus 启用或停用员工账号
func (s *AuthService) SetStaffStatus(staffID uint, status string) (*models.Staff, error) {
	if status != constants.StaffStatusActive && status != constants.StaffStatusDisabled {
		return nil, ErrInvalidStaffStatus
	}
	staff, err := s.staffRepo.GetByID(staffID)
	if err != nil {
		return nil, err
	}
	if staff == nil {
		return nil, ErrStaffNotFound
	}
	staff.Status = status
	if err := s.staffRepo.Update(staff); err != nil {
		return nil, err
	}
	return staff, nil
}

// ListStaff 按角色查询员工
func (s *AuthService) ListStaff(role string) ([]models.Staff, error) {
	if role != "" && !constants.IsValidRole(role) {
		return nil, ErrInvalidRole
	}
	return s.staffRepo.ListByRole(role)
}
