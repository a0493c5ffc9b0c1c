package main

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mshop/internal/database"
	"mshop/pkg/config"
	"mshop/pkg/logger"
	"mshop/pkg/queue"
)

// 邮件投递进程：消费Redis队列并通过SMTP发送
// 与API服务分开部署，SMTP故障不影响注册和重置流程
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	appLogger := logger.GetLogger()
	appLogger.Info("Starting mail worker...")

	mailQueue := database.GetMailQueue()
	if err := mailQueue.Ping(); err != nil {
		appLogger.Fatalf("Failed to connect Redis: %v", err)
	}
	defer database.CloseMailQueue()

	sender := newSMTPSender()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		appLogger.Info("Shutting down mail worker...")
		cancel()
	}()

	for {
		message, err := mailQueue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			appLogger.WithError(err).Error("取邮件失败")
			time.Sleep(time.Second)
			continue
		}
		if message == nil {
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if err := sender.Send(message); err != nil {
			appLogger.WithError(err).Errorf("邮件发送失败: to=%s kind=%s", message.To, message.Kind)
			continue
		}
		appLogger.Infof("邮件发送成功: to=%s kind=%s shop=%s", message.To, message.Kind, message.Shop)
	}

	appLogger.Info("Mail worker exited")
}

// smtpSender SMTP发送器，配置从环境变量读取
type smtpSender struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func newSMTPSender() *smtpSender {
	return &smtpSender{
		host:     getEnv("SMTP_HOST", "localhost"),
		port:     getEnv("SMTP_PORT", "587"),
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     getEnv("SMTP_FROM", "noreply@mshop.local"),
	}
}

func (s *smtpSender) Send(message *queue.MailMessage) error {
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, message.To, message.Subject, message.HTMLBody)

	addr := s.host + ":" + s.port
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	return smtp.SendMail(addr, auth, s.from, []string{message.To}, []byte(body))
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
