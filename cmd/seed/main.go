// Command seed wipes the configured database and fills it with demo
// accounts, books and messages.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/mongo"

	"libris/auth"
	"libris/config"
	"libris/database"
	"libris/logger"
	"libris/models"
)

const demoPassword = "password123"

var accounts = []struct {
	name  string
	email string
	role  models.Role
}{
	{"Admin User", "admin@library.test", models.RoleAdmin},
	{"Sam Staff", "sam@library.test", models.RoleStaff},
	{"Riley Staff", "riley@library.test", models.RoleStaff},
	{"Jordan Staff", "jordan@library.test", models.RoleStaff},
}

var catalogue = []models.Book{
	{Title: "Dune", Author: "Frank Herbert", ISBN: "978-0441172719", Category: models.CategoryFiction, Quantity: 3},
	{Title: "A Brief History of Time", Author: "Stephen Hawking", ISBN: "978-0553380163", Category: models.CategoryScience, Quantity: 2},
	{Title: "Sapiens", Author: "Yuval Noah Harari", ISBN: "978-0062316097", Category: models.CategoryHistory, Quantity: 4},
	{Title: "Educated", Author: "Tara Westover", ISBN: "978-0399590504", Category: models.CategoryNonFiction, Quantity: 1},
	{Title: "The Pragmatic Programmer", Author: "Andrew Hunt", ISBN: "978-0135957059", Category: models.CategoryOther, Quantity: 5},
}

func main() {
	if err := run(); err != nil {
		slog.Error("seeding failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
	if err != nil {
		return err
	}
	defer db.Disconnect(context.Background())

	for _, coll := range []*mongo.Collection{db.Users, db.Books, db.Messages} {
		if err := coll.Drop(ctx); err != nil {
			return fmt.Errorf("dropping %s: %w", coll.Name(), err)
		}
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		return err
	}

	users := database.NewUserStore(db.Users, cfg.DBTimeout)
	books := database.NewBookStore(db.Books, cfg.DBTimeout)
	messages := database.NewMessageStore(db.Messages, cfg.DBTimeout, log)

	hashed, err := auth.HashPassword(demoPassword)
	if err != nil {
		return err
	}

	created := make([]models.User, 0, len(accounts))
	for _, a := range accounts {
		user, err := users.Create(ctx, models.User{Name: a.name, Email: a.email, PasswordHash: hashed, Role: a.role})
		if err != nil {
			return err
		}
		created = append(created, user)
	}
	log.Info("seeded users", "count", len(created), "password", demoPassword)

	for i, book := range catalogue {
		book.UserID = created[i%len(created)].ID
		if _, err := books.Create(ctx, book); err != nil {
			return err
		}
	}
	log.Info("seeded books", "count", len(catalogue))

	admin, staff := created[0], created[1:]
	drafts := lo.FlatMap(staff, func(u models.User, _ int) []models.Draft {
		return []models.Draft{
			{SenderID: admin.ID, To: models.Private{ReceiverID: u.ID}, Text: "Welcome aboard, " + u.Name + "!"},
			{SenderID: u.ID, To: models.Private{ReceiverID: admin.ID}, Text: "Thanks, glad to be here."},
			{SenderID: u.ID, To: models.Group{GroupID: models.MainGroup}, Text: "Hello team, " + u.Name + " here."},
		}
	})
	for _, d := range drafts {
		if _, err := messages.Insert(ctx, d); err != nil {
			return err
		}
	}
	log.Info("seeded messages", "count", len(drafts))
	return nil
}
