package service

import (
	"context"
	"fmt"

	"docspace/internal/domain"
)

// CommentStore - примитивы хранения комментариев,
// см. repository.CommentRepository.
type CommentStore interface {
	Create(ctx context.Context, c *domain.Comment) error
	GetByID(ctx context.Context, id int64) (*domain.Comment, error)
	ListByDocument(ctx context.Context, documentID int64) ([]domain.Comment, error)
	UpdateContent(ctx context.Context, id int64, content string) error
	Delete(ctx context.Context, id int64) error
}

// CommentService ведёт обсуждение документа.
type CommentService struct {
	comments CommentStore
	docs     DocumentGetter
	resolver AbilityResolver
}

func NewCommentService(comments CommentStore, docs DocumentGetter, resolver AbilityResolver) *CommentService {
	return &CommentService{
		comments: comments,
		docs:     docs,
		resolver: resolver,
	}
}

// Add добавляет комментарий к документу. Комментировать может владелец либо
// пользователь с уровнем выше VIEW.
func (s *CommentService) Add(ctx context.Context, actorID int64, documentID int64, content string) (*domain.Comment, error) {
	if content == "" {
		return nil, fmt.Errorf("comment must not be empty: %w", domain.ErrInvalidOperation)
	}

	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != actorID {
		if err := s.resolver.RequireAbility(ctx, domain.FileResource(documentID), actorID, domain.AbilityComment); err != nil {
			return nil, err
		}
	}

	comment := &domain.Comment{
		FileID:    documentID,
		CreatedBy: actorID,
		Content:   content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// List возвращает комментарии документа по времени публикации.
func (s *CommentService) List(ctx context.Context, actorID int64, documentID int64) ([]domain.Comment, error) {
	if _, err := s.docs.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	if err := s.resolver.RequireAbility(ctx, domain.FileResource(documentID), actorID, domain.AbilityView); err != nil {
		return nil, err
	}
	return s.comments.ListByDocument(ctx, documentID)
}

// Edit меняет текст комментария. Доступно только автору.
func (s *CommentService) Edit(ctx context.Context, actorID int64, commentID int64, content string) error {
	if content == "" {
		return fmt.Errorf("comment must not be empty: %w", domain.ErrInvalidOperation)
	}

	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.CreatedBy != actorID {
		return fmt.Errorf("only the author may edit a comment: %w", domain.ErrPermissionDenied)
	}
	return s.comments.UpdateContent(ctx, commentID, content)
}

// Delete удаляет комментарий. Доступно автору и владельцу документа.
func (s *CommentService) Delete(ctx context.Context, actorID int64, commentID int64) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.CreatedBy != actorID {
		doc, err := s.docs.GetDocument(ctx, comment.FileID)
		if err != nil {
			return err
		}
		if doc.OwnerID != actorID {
			return fmt.Errorf("only the author or the document owner may delete a comment: %w", domain.ErrPermissionDenied)
		}
	}
	return s.comments.Delete(ctx, commentID)
}
