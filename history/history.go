// Package history 持久化会话与消息（gorm + sqlite）。
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/VinayJayadev/GraphRAG-powered-ChatBot/types"
)

// Conversation 一段会话。
type Conversation struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"size:255" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message 会话里的一条消息。Metadata 存放序列化后的来源等附加信息。
type Message struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"index;size:36" json:"conversation_id"`
	Role           string    `gorm:"size:16" json:"role"`
	Content        string    `json:"content"`
	Metadata       string    `json:"metadata,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store 会话存储。
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open 打开（或创建）sqlite 数据库并迁移表结构。
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.AutoMigrate(&Conversation{}, &Message{}); err != nil {
		return nil, fmt.Errorf("migrate history schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With(zap.String("component", "history_store")),
	}, nil
}

// CreateConversation 新建会话。
func (s *Store) CreateConversation(ctx context.Context, title string) (*Conversation, error) {
	conv := &Conversation{
		ID:    uuid.NewString(),
		Title: title,
	}
	if err := s.db.WithContext(ctx).Create(conv).Error; err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// GetConversation 按 id 取会话。
func (s *Store) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	err := s.db.WithContext(ctx).First(&conv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrNotFound, fmt.Sprintf("conversation %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &conv, nil
}

// ListConversations 按更新时间倒序列出会话。
func (s *Store) ListConversations(ctx context.Context, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	var convs []Conversation
	err := s.db.WithContext(ctx).
		Order("updated_at DESC").
		Limit(limit).
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

// DeleteConversation 删除会话及其全部消息。
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&Message{}, "conversation_id = ?", id).Error; err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		res := tx.Delete(&Conversation{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete conversation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return types.NewError(types.ErrNotFound, fmt.Sprintf("conversation %s not found", id))
		}
		return nil
	})
}

// AppendTurn 在一个事务里写入用户消息和助手回复，并刷新会话更新时间。
// 模型调用失败的轮次不会走到这里，失败轮次零持久化。
func (s *Store) AppendTurn(ctx context.Context, conversationID string, userContent, assistantContent, assistantMetadata string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv Conversation
		if err := tx.First(&conv, "id = ?", conversationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NewError(types.ErrNotFound, fmt.Sprintf("conversation %s not found", conversationID))
			}
			return err
		}

		// 显式错开时间戳，保证同一轮内 user 先于 assistant
		now := time.Now()
		msgs := []Message{
			{
				ID:             uuid.NewString(),
				ConversationID: conversationID,
				Role:           "user",
				Content:        userContent,
				CreatedAt:      now,
			},
			{
				ID:             uuid.NewString(),
				ConversationID: conversationID,
				Role:           "assistant",
				Content:        assistantContent,
				Metadata:       assistantMetadata,
				CreatedAt:      now.Add(time.Microsecond),
			},
		}
		if err := tx.Create(&msgs).Error; err != nil {
			return fmt.Errorf("append turn: %w", err)
		}

		return tx.Model(&conv).Update("updated_at", time.Now()).Error
	})
}

// Messages 返回会话的全部消息，按时间升序。
func (s *Store) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	var msgs []Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	return msgs, nil
}

// RecentTurns 返回会话最近的 limit 条消息，按时间升序，供编排器拼接提示词。
func (s *Store) RecentTurns(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	var msgs []Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("load recent turns: %w", err)
	}
	// 倒序取出，升序返回
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
