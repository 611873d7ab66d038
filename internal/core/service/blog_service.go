package service

import (
	"context"

	"github.com/rl1809/voucher-rush/internal/port"
)

const topLikerCount = 5

// BlogService keeps the like state in a per-blog sorted set scored by like
// time, with a denormalized counter on the blog row.
type BlogService struct {
	likes port.LikeRepository
	db    port.DatabaseRepository
}

func NewBlogService(likes port.LikeRepository, db port.DatabaseRepository) *BlogService {
	return &BlogService{likes: likes, db: db}
}

// Like toggles the user's like: first call likes, second call unlikes.
func (s *BlogService) Like(ctx context.Context, userID, blogID uint64) error {
	liked, err := s.likes.IsLiked(ctx, blogID, userID)
	if err != nil {
		return err
	}
	if !liked {
		if err := s.db.IncrBlogLiked(ctx, blogID, 1); err != nil {
			return err
		}
		return s.likes.AddLike(ctx, blogID, userID)
	}
	if err := s.db.IncrBlogLiked(ctx, blogID, -1); err != nil {
		return err
	}
	return s.likes.RemoveLike(ctx, blogID, userID)
}

// TopLikers returns the five earliest likers, oldest first.
func (s *BlogService) TopLikers(ctx context.Context, blogID uint64) ([]uint64, error) {
	return s.likes.TopLikers(ctx, blogID, topLikerCount)
}
