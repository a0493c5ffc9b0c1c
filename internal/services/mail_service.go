package services

import (
	"context"
	"fmt"

	"mshop/internal/shop"
	"mshop/pkg/logger"
	"mshop/pkg/queue"

	"github.com/sirupsen/logrus"
)

// 邮件类型
const (
	MailKindVerification  = "verification"
	MailKindPasswordReset = "password_reset"
)

// MailService 邮件服务
// 只负责组装邮件并入队，实际投递由独立的消费进程完成
// 入队失败不阻断主流程，只记录日志
type MailService struct {
	queue    *queue.MailQueue
	registry *shop.Registry
	logger   *logrus.Logger
}

func NewMailService(mailQueue *queue.MailQueue, registry *shop.Registry) *MailService {
	return &MailService{
		queue:    mailQueue,
		registry: registry,
		logger:   logger.GetLogger(),
	}
}

// SendVerificationMail 发送邮箱验证邮件
func (s *MailService) SendVerificationMail(ctx context.Context, email, shopID, token string) {
	shopName, frontendURL := s.shopInfo(shopID)
	link := fmt.Sprintf("%s/verify-email?token=%s", frontendURL, token)

	message := &queue.MailMessage{
		To:      email,
		Subject: fmt.Sprintf("欢迎注册 %s，请验证您的邮箱", shopName),
		HTMLBody: fmt.Sprintf(
			"<p>感谢注册 %s！</p><p>请点击链接完成邮箱验证：<a href=\"%s\">%s</a></p><p>链接24小时内有效。</p>",
			shopName, link, link),
		TextBody: fmt.Sprintf("感谢注册 %s！请访问以下链接完成邮箱验证（24小时内有效）：%s", shopName, link),
		Shop:     shopID,
		Kind:     MailKindVerification,
	}
	s.enqueue(ctx, message)
}

// SendPasswordResetMail 发送密码重置邮件
func (s *MailService) SendPasswordResetMail(ctx context.Context, email, shopID, token string) {
	shopName, frontendURL := s.shopInfo(shopID)
	link := fmt.Sprintf("%s/reset-password?token=%s", frontendURL, token)

	message := &queue.MailMessage{
		To:      email,
		Subject: fmt.Sprintf("%s 密码重置", shopName),
		HTMLBody: fmt.Sprintf(
			"<p>我们收到了您的密码重置请求。</p><p>请点击链接设置新密码：<a href=\"%s\">%s</a></p><p>链接1小时内有效，如非本人操作请忽略。</p>",
			link, link),
		TextBody: fmt.Sprintf("请访问以下链接重置密码（1小时内有效）：%s", link),
		Shop:     shopID,
		Kind:     MailKindPasswordReset,
	}
	s.enqueue(ctx, message)
}

func (s *MailService) shopInfo(shopID string) (name, frontendURL string) {
	name = shopID
	frontendURL = "http://localhost:3000"
	if cfg, ok := s.registry.Get(shopID); ok {
		name = cfg.Name
		if cfg.FrontendURL != "" {
			frontendURL = cfg.FrontendURL
		}
	}
	return name, frontendURL
}

func (s *MailService) enqueue(ctx context.Context, message *queue.MailMessage) {
	if err := s.queue.Enqueue(ctx, message); err != nil {
		s.logger.WithError(err).Errorf("邮件入队失败: to=%s kind=%s", message.To, message.Kind)
	}
}
