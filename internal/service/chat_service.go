package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cozee/docchat/internal/ai"
	"github.com/cozee/docchat/internal/model"
	appErr "github.com/cozee/docchat/internal/pkg/errors"
	"github.com/cozee/docchat/internal/pkg/logutil"
	"github.com/cozee/docchat/internal/rag"
)

// DefaultTopK is how many retrieved chunks feed the completion context.
const DefaultTopK = 3

const systemPromptFormat = `You are a helpful assistant that answers questions based on the provided document context.
Only answer what can be inferred from the context. If you don't know the answer, say so.

Context from the document:
%s`

type ChatStore interface {
	Create(ctx context.Context, chat *model.Chat) error
	GetByID(ctx context.Context, id string) (*model.Chat, error)
	ListByResource(ctx context.Context, userID, resourceID string) ([]*model.Chat, error)
	UpdateTitle(ctx context.Context, userID, chatID, title string) error
	Delete(ctx context.Context, userID, chatID string) error
}

type MessageStore interface {
	Create(ctx context.Context, msg *model.Message) error
	ListByChat(ctx context.Context, chatID string) ([]*model.Message, error)
}

type VectorSource interface {
	ListByResource(ctx context.Context, resourceID string) ([]*model.Vector, error)
	ListByResources(ctx context.Context, resourceIDs []string) ([]*model.Vector, error)
}

type ResourceSource interface {
	GetByID(ctx context.Context, id string) (*model.Resource, error)
	ListBatchMembers(ctx context.Context, batchID string) ([]*model.Resource, error)
}

type ShareSource interface {
	GetByToken(ctx context.Context, token string) (*model.Share, error)
}

type ChatService struct {
	chats     ChatStore
	messages  MessageStore
	vectors   VectorSource
	resources ResourceSource
	shares    ShareSource
	embedder  ai.IEmbedder
	completer ai.ICompleter
	topK      int
}

func NewChatService(chats ChatStore, messages MessageStore, vectors VectorSource, resources ResourceSource, shares ShareSource, embedder ai.IEmbedder, completer ai.ICompleter, topK int) *ChatService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &ChatService{
		chats:     chats,
		messages:  messages,
		vectors:   vectors,
		resources: resources,
		shares:    shares,
		embedder:  embedder,
		completer: completer,
		topK:      topK,
	}
}

// Create opens a chat over a resource the user owns, or over any resource
// reachable through a valid share token.
func (s *ChatService) Create(ctx context.Context, userID, resourceID, shareToken, title string) (*model.Chat, error) {
	res, err := s.resources.GetByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID {
		if shareToken == "" {
			return nil, appErr.ErrForbidden
		}
		share, err := s.shares.GetByToken(ctx, shareToken)
		if err != nil || share.ResourceID != resourceID {
			return nil, appErr.ErrForbidden
		}
	}
	if title == "" {
		title = res.Title
	}
	chat := &model.Chat{
		ID:         newID(),
		UserID:     userID,
		ResourceID: resourceID,
		Title:      title,
		Ctime:      time.Now().UnixMilli(),
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *ChatService) Get(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	chat, err := s.ownedChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	chat.Messages = msgs
	return chat, nil
}

func (s *ChatService) List(ctx context.Context, userID, resourceID string) ([]*model.Chat, error) {
	return s.chats.ListByResource(ctx, userID, resourceID)
}

func (s *ChatService) Rename(ctx context.Context, userID, chatID, title string) error {
	if strings.TrimSpace(title) == "" {
		return appErr.ErrInvalid
	}
	return s.chats.UpdateTitle(ctx, userID, chatID, title)
}

func (s *ChatService) Delete(ctx context.Context, userID, chatID string) error {
	return s.chats.Delete(ctx, userID, chatID)
}

// SendMessage runs one retrieval-augmented exchange: persist the user
// prompt, retrieve the top-K most similar chunks for the chat's resource,
// complete against system prompt + prior messages + prompt, persist and
// return the reply.
func (s *ChatService) SendMessage(ctx context.Context, userID, chatID, prompt string) (*model.Message, error) {
	system, history, chat, err := s.prepare(ctx, userID, chatID, prompt)
	if err != nil {
		return nil, err
	}
	reply, err := s.completer.Complete(ctx, system, history)
	if err != nil {
		return nil, fmt.Errorf("%w: completion: %v", appErr.ErrExternal, err)
	}
	return s.saveReply(ctx, chat.ID, reply)
}

// SendMessageStream behaves like SendMessage but forwards completion
// tokens through fn as they arrive. The assembled reply is persisted once
// the stream ends.
func (s *ChatService) SendMessageStream(ctx context.Context, userID, chatID, prompt string, fn func(token string) error) (*model.Message, error) {
	system, history, chat, err := s.prepare(ctx, userID, chatID, prompt)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	err = s.completer.CompleteStream(ctx, system, history, func(token string) error {
		sb.WriteString(token)
		return fn(token)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: completion stream: %v", appErr.ErrExternal, err)
	}
	return s.saveReply(ctx, chat.ID, sb.String())
}

func (s *ChatService) prepare(ctx context.Context, userID, chatID, prompt string) (string, []ai.Message, *model.Chat, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", nil, nil, appErr.ErrInvalid
	}
	chat, err := s.ownedChat(ctx, userID, chatID)
	if err != nil {
		return "", nil, nil, err
	}
	prior, err := s.messages.ListByChat(ctx, chatID)
	if err != nil {
		return "", nil, nil, err
	}

	userMsg := &model.Message{
		ID:      newID(),
		ChatID:  chatID,
		Role:    model.RoleUser,
		Content: prompt,
		Ctime:   time.Now().UnixMilli(),
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return "", nil, nil, err
	}

	contextText, err := s.retrieveContext(ctx, chat.ResourceID, prompt)
	if err != nil {
		return "", nil, nil, err
	}

	history := make([]ai.Message, 0, len(prior)+1)
	for _, msg := range prior {
		history = append(history, ai.Message{Role: msg.Role, Content: msg.Content})
	}
	history = append(history, ai.Message{Role: model.RoleUser, Content: prompt})
	return fmt.Sprintf(systemPromptFormat, contextText), history, chat, nil
}

func (s *ChatService) retrieveContext(ctx context.Context, resourceID, prompt string) (string, error) {
	queryEmb, err := s.embedder.Embed(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: embed query: %v", appErr.ErrExternal, err)
	}
	candidates, err := s.candidateVectors(ctx, resourceID)
	if err != nil {
		return "", err
	}
	top := rag.Rank(queryEmb, candidates, s.topK)
	logutil.GetLogger(ctx).Debug("retrieved context chunks",
		zap.String("resource_id", resourceID),
		zap.Int("candidates", len(candidates)),
		zap.Int("selected", len(top)),
	)
	parts := make([]string, 0, len(top))
	for _, sv := range top {
		parts = append(parts, sv.Vector.Content)
	}
	return strings.Join(parts, "\n\n"), nil
}

// candidateVectors resolves the vector set by resource kind: a batch pulls
// the union of its members' vectors, anything else its own.
func (s *ChatService) candidateVectors(ctx context.Context, resourceID string) ([]*model.Vector, error) {
	res, err := s.resources.GetByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	switch res.Kind {
	case model.KindBatch:
		members, err := s.resources.ListBatchMembers(ctx, res.ID)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(members))
		for _, member := range members {
			ids = append(ids, member.ID)
		}
		return s.vectors.ListByResources(ctx, ids)
	case model.KindDocument, model.KindWebPage:
		return s.vectors.ListByResource(ctx, res.ID)
	default:
		return nil, fmt.Errorf("unsupported resource kind: %s", res.Kind)
	}
}

func (s *ChatService) saveReply(ctx context.Context, chatID, reply string) (*model.Message, error) {
	msg := &model.Message{
		ID:      newID(),
		ChatID:  chatID,
		Role:    model.RoleAssistant,
		Content: reply,
		Ctime:   time.Now().UnixMilli(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *ChatService) ownedChat(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.UserID != userID {
		return nil, appErr.ErrForbidden
	}
	return chat, nil
}
