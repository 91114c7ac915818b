package control

import (
	"errors"
	"fmt"

	"rectifier-gateway/internal/config"
)

// AuthService 定义控制口的认证服务接口
type AuthService interface {
	// Required 是否要求认证 (未配置用户时控制口开放)
	Required() bool
	// Login 验证用户名和密码
	Login(username, password string) error
}

// InMemoryAuthService 基于配置文件的简单认证服务
type InMemoryAuthService struct {
	users map[string]string
}

var _ AuthService = (*InMemoryAuthService)(nil)

func NewInMemoryAuthService(authCfg config.AuthConfig) *InMemoryAuthService {
	users := make(map[string]string)
	for _, u := range authCfg.Users {
		users[u.Username] = u.Password
	}
	return &InMemoryAuthService{users: users}
}

func (s *InMemoryAuthService) Required() bool {
	return len(s.users) > 0
}

func (s *InMemoryAuthService) Login(username, password string) error {
	expectedPwd, ok := s.users[username]
	if !ok {
		return fmt.Errorf("未知用户: %s", username)
	}
	if expectedPwd != password {
		return errors.New("密码错误")
	}
	return nil
}
