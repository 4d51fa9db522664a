package services

import (
	"context"

	"socialfeed/models"
	"socialfeed/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// populator resolves author and category references in batches.
type populator struct {
	store *repositories.Store
}

func (p *populator) authors(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	users, err := p.store.Users.FindByIDs(ctx, models.DedupeIDs(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (p *populator) categories(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Category, error) {
	cats, err := p.store.Categories.FindByIDs(ctx, models.DedupeIDs(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]models.Category, len(cats))
	for _, c := range cats {
		out[c.ID] = c
	}
	return out, nil
}

func (p *populator) posts(ctx context.Context, posts []models.Post) ([]models.PostView, error) {
	authorIDs := make([]primitive.ObjectID, 0, len(posts))
	categoryIDs := make([]primitive.ObjectID, 0, len(posts))
	for _, post := range posts {
		authorIDs = append(authorIDs, post.Author)
		if post.Category != nil {
			categoryIDs = append(categoryIDs, *post.Category)
		}
	}

	authors, err := p.authors(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	categories, err := p.categories(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}

	views := make([]models.PostView, len(posts))
	for i := range posts {
		views[i] = posts[i].View(authors, categories)
	}
	return views, nil
}

func (p *populator) post(ctx context.Context, post *models.Post) (models.PostView, error) {
	views, err := p.posts(ctx, []models.Post{*post})
	if err != nil {
		return models.PostView{}, err
	}
	return views[0], nil
}

func (p *populator) users(ctx context.Context, users []models.User) ([]models.UserView, error) {
	var interestIDs []primitive.ObjectID
	for _, u := range users {
		interestIDs = append(interestIDs, u.Interests...)
	}
	categories, err := p.categories(ctx, interestIDs)
	if err != nil {
		return nil, err
	}

	views := make([]models.UserView, len(users))
	for i := range users {
		views[i] = users[i].View(categories)
	}
	return views, nil
}

func (p *populator) comments(ctx context.Context, comments []models.Comment) ([]models.CommentView, error) {
	authorIDs := make([]primitive.ObjectID, 0, len(comments))
	for _, c := range comments {
		authorIDs = append(authorIDs, c.Author)
	}
	authors, err := p.authors(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	views := make([]models.CommentView, len(comments))
	for i := range comments {
		views[i] = comments[i].View(authors)
	}
	return views, nil
}
