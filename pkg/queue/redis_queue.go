package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// MailQueue Redis邮件队列实现
// 认证流程只负责入队，实际投递由独立的邮件消费进程完成
type MailQueue struct {
	client *redis.Client
	prefix string
}

// MailMessage 队列中的邮件消息
type MailMessage struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	TextBody string `json:"text_body"`
	Shop     string `json:"shop"`    // 所属店铺（用于品牌模板）
	Kind     string `json:"kind"`    // verification / password_reset
	Created  int64  `json:"created"` // 入队时间戳
}

// Config Redis配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// NewMailQueue 创建Redis邮件队列实例
func NewMailQueue(config *Config) *MailQueue {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = "mshop:mail"
	}

	return &MailQueue{
		client: client,
		prefix: prefix,
	}
}

// Close 关闭Redis连接
func (q *MailQueue) Close() error {
	return q.client.Close()
}

// Ping 测试Redis连接
func (q *MailQueue) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return q.client.Ping(ctx).Err()
}

// Enqueue 将邮件加入队列（左侧入队）
func (q *MailQueue) Enqueue(ctx context.Context, message *MailMessage) error {
	message.Created = time.Now().Unix()

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("序列化邮件消息失败: %v", err)
	}

	if err := q.client.LPush(ctx, q.queueKey(), data).Err(); err != nil {
		return fmt.Errorf("邮件入队失败: %v", err)
	}

	return nil
}

// Dequeue 阻塞取出一封待发送邮件，超时返回nil
func (q *MailQueue) Dequeue(ctx context.Context, timeout time.Duration) (*MailMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueKey()).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	// BRPop返回 [key, value]
	if len(result) < 2 {
		return nil, nil
	}

	var message MailMessage
	if err := json.Unmarshal([]byte(result[1]), &message); err != nil {
		return nil, fmt.Errorf("解析邮件消息失败: %v", err)
	}

	return &message, nil
}

// Length 当前队列长度
func (q *MailQueue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueKey()).Result()
}

func (q *MailQueue) queueKey() string {
	return q.prefix + ":outbox"
}
