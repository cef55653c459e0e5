package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

func TestCatalogAndDirectory_Mongo(t *testing.T) {
	db := utils.SetupTestDB(t, "bookbuddy_services_test", booksCollection, usersCollection, emailTemplatesCollection)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	owner := utils.NewSixID()
	cond := models.ConditionFair
	rows := []interface{}{
		models.Book{ID: utils.NewSixID(), OwnerID: owner, Title: "Dune", Author: "Frank Herbert", Condition: &cond, IsAvailable: true, CreatedAt: now, UpdatedAt: now},
		models.Book{ID: utils.NewSixID(), OwnerID: owner, Title: "1984", Author: "George Orwell", IsWanted: true, CreatedAt: now, UpdatedAt: now},
		// offered without a condition: rejected by validation and skipped
		models.Book{ID: utils.NewSixID(), OwnerID: owner, Title: "Emma", Author: "Jane Austen", IsAvailable: true, CreatedAt: now, UpdatedAt: now},
		models.Book{ID: utils.NewSixID(), OwnerID: utils.NewSixID(), Title: "Beloved", Author: "Toni Morrison", Condition: &cond, IsAvailable: true, CreatedAt: now, UpdatedAt: now},
	}
	_, err := db.Collection(booksCollection).InsertMany(ctx, rows)
	require.NoError(t, err)

	catalog := NewCatalogService(db)

	offered, err := catalog.ListOffered(ctx, owner)
	require.NoError(t, err)
	require.Len(t, offered, 1)
	assert.Equal(t, "Dune", offered[0].Title)

	wanted, err := catalog.ListWanted(ctx, owner)
	require.NoError(t, err)
	require.Len(t, wanted, 1)

	all, err := catalog.ListAllOffered(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	entry, err := catalog.FindBookByID(ctx, offered[0].ID)
	require.NoError(t, err)
	assert.IsType(t, models.OfferedBook{}, entry)

	_, err = catalog.FindBookByID(ctx, utils.NewSixID())
	assert.True(t, errors.Is(err, ErrNotFound))

	users := NewUserService(db)
	user := models.User{Base: models.Base{ID: owner}, Username: "reader", Email: "reader@example.com", CreatedAt: now}
	_, err = db.Collection(usersCollection).InsertOne(ctx, user)
	require.NoError(t, err)

	found, err := users.FindByID(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "reader", found.Username)

	_, err = users.FindByID(ctx, utils.NewSixID())
	assert.True(t, errors.Is(err, ErrNotFound))

	templates := NewEmailTemplateService(db)
	tmpl, err := templates.GetTemplate(ctx, string(models.EventMatchFound), "en-US")
	require.NoError(t, err)
	assert.Contains(t, tmpl.Subject, "new swap match")

	require.NoError(t, templates.SaveTemplate(ctx, &models.EmailTemplate{TemplateID: string(models.EventMatchFound), Locale: "en-US", Subject: "Custom", Body: "Body"}))
	tmpl, err = templates.GetTemplate(ctx, string(models.EventMatchFound), "en-US")
	require.NoError(t, err)
	assert.Equal(t, "Custom", tmpl.Subject)
}

func TestEmailTemplateService_Defaults(t *testing.T) {
	templates := NewEmailTemplateService(nil)
	for _, kind := range []models.EventKind{
		models.EventMatchFound, models.EventMatchAccepted, models.EventMatchDeclined,
		models.EventMatchCompleted, models.EventMessageReceived,
	} {
		tmpl, err := templates.GetTemplate(context.Background(), string(kind), "en-US")
		require.NoError(t, err, string(kind))
		assert.Equal(t, string(kind), tmpl.TemplateID)
	}

	_, err := templates.GetTemplate(context.Background(), "no_such_event", "en-US")
	assert.Error(t, err)
}
