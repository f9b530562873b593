package conversationrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/infrastructure/database/dbschema"
	"jan-server/services/chat-api/internal/infrastructure/database/transaction"
	"jan-server/services/chat-api/internal/utils/functional"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

const uniqueViolation = "23505"

type ConversationGormRepository struct {
	db  *transaction.Database
	now func() time.Time
}

var _ conversation.Store = (*ConversationGormRepository)(nil)

func NewConversationGormRepository(db *transaction.Database) *ConversationGormRepository {
	return &ConversationGormRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create implements conversation.Store.
func (repo *ConversationGormRepository) Create(ctx context.Context, conv *conversation.Conversation) error {
	model := dbschema.NewSchemaConversation(conv)
	if err := repo.db.GetTx(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict, "conversation already exists", err, "2d8d4ff0-1904-4fab-8556-644aa156dded")
		}
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to create conversation")
	}
	return nil
}

// Get implements conversation.Store.
func (repo *ConversationGormRepository) Get(ctx context.Context, owner identity.UserID, id string) (*conversation.Conversation, error) {
	row, err := repo.find(ctx, repo.db.GetTx(ctx), owner, id)
	if err != nil {
		return nil, err
	}

	var messages []*dbschema.Message
	if err := repo.db.GetTx(ctx).
		Where("conversation_id = ?", id).
		Order("sequence ASC").
		Find(&messages).Error; err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to load messages")
	}

	conv := row.EtoD()
	conv.Messages = functional.Map(messages, func(m *dbschema.Message) conversation.Message {
		return m.EtoD()
	})
	return conv, nil
}

// List implements conversation.Store.
func (repo *ConversationGormRepository) List(ctx context.Context, owner identity.UserID) ([]*conversation.Conversation, error) {
	var rows []*dbschema.Conversation
	if err := repo.db.GetTx(ctx).
		Where("user_id = ?", string(owner)).
		Order("updated_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to list conversations")
	}
	return functional.Map(rows, func(row *dbschema.Conversation) *conversation.Conversation {
		return row.EtoD()
	}), nil
}

// AppendMessage implements conversation.Store. The conversation row is locked so sequence numbers
// stay dense under concurrent writers.
func (repo *ConversationGormRepository) AppendMessage(ctx context.Context, owner identity.UserID, id string, msg *conversation.Message) (bool, error) {
	inserted := false
	err := repo.db.Transaction(ctx, func(ctx context.Context) error {
		tx := repo.db.GetTx(ctx)
		row, err := repo.find(ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), owner, id)
		if err != nil {
			return err
		}

		var existing dbschema.Message
		err = tx.Where("id = ? AND conversation_id = ?", msg.ID, id).Take(&existing).Error
		if err == nil {
			msg.Sequence = existing.Sequence
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to check message")
		}

		msg.Sequence = row.MessageCount + 1
		if err := tx.Create(dbschema.NewSchemaMessage(id, msg)).Error; err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to store message")
		}
		if err := tx.Model(&dbschema.Conversation{ID: row.ID}).Updates(map[string]any{
			"message_count": msg.Sequence,
			"updated_at":    repo.touch(row.UpdatedAt),
		}).Error; err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to update conversation")
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// UpdateTitle implements conversation.Store. A synthesized title applies at most once and never
// over a user chosen title.
func (repo *ConversationGormRepository) UpdateTitle(ctx context.Context, owner identity.UserID, id string, change conversation.TitleChange) (*conversation.Conversation, bool, error) {
	var (
		result  *conversation.Conversation
		applied bool
	)
	err := repo.db.Transaction(ctx, func(ctx context.Context) error {
		tx := repo.db.GetTx(ctx)
		row, err := repo.find(ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), owner, id)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		switch change.Source {
		case conversation.TitleSourceUser:
			updates["title_locked"] = true
		case conversation.TitleSourceSynthesized:
			if !row.EtoD().AcceptsSynthesizedTitle() {
				result = row.EtoD()
				return nil
			}
			updates["title_finalized"] = true
		default:
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeValidation, "unknown title source", nil, "92f764e2-c78e-4caf-839a-4a6ecdac7944")
		}

		metadata := datatypes.JSONMap{}
		for k, v := range row.Metadata {
			metadata[k] = v
		}
		metadata[dbschema.MetadataTitleSource] = string(change.Source)

		updatedAt := repo.touch(row.UpdatedAt)
		updates["title"] = change.Title
		updates["version"] = row.Version + 1
		updates["metadata"] = metadata
		updates["updated_at"] = updatedAt
		if err := tx.Model(&dbschema.Conversation{ID: row.ID}).Updates(updates).Error; err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to update title")
		}

		row.Title = change.Title
		row.Version++
		row.UpdatedAt = updatedAt
		row.TitleLocked = row.TitleLocked || change.Source == conversation.TitleSourceUser
		row.TitleFinalized = row.TitleFinalized || change.Source == conversation.TitleSourceSynthesized
		applied = true
		result = row.EtoD()
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, applied, nil
}

// UpdateModel implements conversation.Store.
func (repo *ConversationGormRepository) UpdateModel(ctx context.Context, owner identity.UserID, id string, provider string, model string) error {
	return repo.db.Transaction(ctx, func(ctx context.Context) error {
		tx := repo.db.GetTx(ctx)
		row, err := repo.find(ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), owner, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&dbschema.Conversation{ID: row.ID}).Updates(map[string]any{
			"provider":   provider,
			"model":      model,
			"updated_at": repo.touch(row.UpdatedAt),
		}).Error; err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to update model")
		}
		return nil
	})
}

// Delete implements conversation.Store. Messages go with the conversation.
func (repo *ConversationGormRepository) Delete(ctx context.Context, owner identity.UserID, id string) error {
	return repo.db.Transaction(ctx, func(ctx context.Context) error {
		tx := repo.db.GetTx(ctx)
		if _, err := repo.find(ctx, tx, owner, id); err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&dbschema.Message{}).Error; err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to delete messages")
		}
		if err := tx.Where("id = ? AND user_id = ?", id, string(owner)).Delete(&dbschema.Conversation{}).Error; err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to delete conversation")
		}
		return nil
	})
}

// find loads a conversation owned by owner. Rows of other owners are reported as missing.
func (repo *ConversationGormRepository) find(ctx context.Context, tx *gorm.DB, owner identity.UserID, id string) (*dbschema.Conversation, error) {
	var row dbschema.Conversation
	err := tx.Where("id = ? AND user_id = ?", id, string(owner)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "conversation not found", err, "3b004912-3424-4b1b-aad8-3e2e645bf1bd")
	}
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to find conversation")
	}
	return &row, nil
}

func (repo *ConversationGormRepository) touch(prev time.Time) time.Time {
	now := repo.now()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
