package services

import (
	"mshop/pkg/logger"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// TokenCleanupScheduler 刷新令牌清理调度器
// 过期令牌在校验路径上已被拒绝，定时清理只为回收存储
type TokenCleanupScheduler struct {
	userService *UserService
	cron        *cron.Cron
	logger      *logrus.Logger
	isRunning   bool
}

func NewTokenCleanupScheduler(userService *UserService) *TokenCleanupScheduler {
	return &TokenCleanupScheduler{
		userService: userService,
		cron:        cron.New(),
		logger:      logger.GetLogger(),
		isRunning:   false,
	}
}

// Start 启动调度器，每小时清理一次过期刷新令牌
func (s *TokenCleanupScheduler) Start() error {
	if s.isRunning {
		return nil
	}

	if _, err := s.cron.AddFunc("@hourly", s.runCleanup); err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true

	s.logger.Info("刷新令牌清理调度器启动成功")
	return nil
}

// Stop 停止调度器
func (s *TokenCleanupScheduler) Stop() {
	if !s.isRunning {
		return
	}

	s.logger.Info("停止刷新令牌清理调度器")
	s.cron.Stop()
	s.isRunning = false
}

func (s *TokenCleanupScheduler) runCleanup() {
	count, err := s.userService.CleanupExpiredTokens()
	if err != nil {
		s.logger.WithError(err).Error("清理过期刷新令牌失败")
		return
	}
	if count > 0 {
		s.logger.Infof("已清理 %d 条过期刷新令牌", count)
	}
}
