package interactions

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Interaction struct {
	UserID    string    `json:"userId"`
	BookID    string    `json:"bookId"`
	Type      string    `json:"interactionType"`
	CreatedAt time.Time `json:"createdAt"`
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Insert(ctx context.Context, in Interaction) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO interactions(user_id, book_id, interaction_type, created_at)
		VALUES ($1,$2,$3,$4)`,
		in.UserID, in.BookID, in.Type, in.CreatedAt)
	return err
}
