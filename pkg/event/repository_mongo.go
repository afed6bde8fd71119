package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const eventsCollection = "events"

// eventDocument stores the date as YYYY-MM-DD so that lexical order is calendar order.
type eventDocument struct {
	Id          primitive.ObjectID `bson:"_id,omitempty"`
	OwnerId     int                `bson:"owner_id"`
	Name        string             `bson:"name"`
	Date        string             `bson:"date"`
	Time        string             `bson:"time"`
	Venue       string             `bson:"venue"`
	Location    string             `bson:"location"`
	Description string             `bson:"description"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

type MongoRepository struct {
	events *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{events: db.Collection(eventsCollection)}
}

// EnsureIndexes creates the compound index backing owner scoped, date ordered reads.
func (m *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.events.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "date", Value: 1}, {Key: "time", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create events index: %w", err)
	}
	return nil
}

var eventOrder = bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

func (m *MongoRepository) ListEvents(ctx context.Context, ownerId int) ([]Event, error) {
	return m.find(ctx, bson.M{"owner_id": ownerId})
}

func (m *MongoRepository) ListEventsBetween(ctx context.Context, ownerId int, from, to civil.Date) ([]Event, error) {
	return m.find(ctx, bson.M{
		"owner_id": ownerId,
		"date":     bson.M{"$gte": from.String(), "$lte": to.String()},
	})
}

func (m *MongoRepository) GetEvent(ctx context.Context, ownerId int, id string) (Event, error) {
	objectId, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Event{}, ErrEventNotFound
	}
	var doc eventDocument
	err = m.events.FindOne(ctx, bson.M{"_id": objectId, "owner_id": ownerId}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Event{}, ErrEventNotFound
	} else if err != nil {
		log.Errorf("failed to get event: %v", err)
		return Event{}, err
	}
	return doc.toEvent()
}

func (m *MongoRepository) StoreEvent(ctx context.Context, ownerId int, event Event) (Event, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := toDocument(event)
	doc.Id = primitive.NewObjectID()
	doc.OwnerId = ownerId
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := m.events.InsertOne(ctx, doc); err != nil {
		log.Errorf("failed to store event: %v", err)
		return Event{}, err
	}
	return doc.toEvent()
}

func (m *MongoRepository) UpdateEvent(ctx context.Context, ownerId int, event Event) (Event, error) {
	objectId, err := primitive.ObjectIDFromHex(event.Id)
	if err != nil {
		return Event{}, ErrEventNotFound
	}
	var doc eventDocument
	err = m.events.FindOneAndUpdate(ctx,
		bson.M{"_id": objectId, "owner_id": ownerId},
		bson.M{"$set": bson.M{
			"name":        event.Name,
			"date":        event.Date.String(),
			"time":        event.Time,
			"venue":       event.Venue,
			"location":    event.Location,
			"description": event.Description,
			"updated_at":  time.Now().UTC().Truncate(time.Millisecond),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Event{}, ErrEventNotFound
	} else if err != nil {
		log.Errorf("failed to update event: %v", err)
		return Event{}, err
	}
	return doc.toEvent()
}

func (m *MongoRepository) DeleteEvent(ctx context.Context, ownerId int, id string) error {
	objectId, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrEventNotFound
	}
	result, err := m.events.DeleteOne(ctx, bson.M{"_id": objectId, "owner_id": ownerId})
	if err != nil {
		log.Errorf("failed to delete event: %v", err)
		return err
	}
	if result.DeletedCount == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (m *MongoRepository) find(ctx context.Context, filter bson.M) ([]Event, error) {
	cursor, err := m.events.Find(ctx, filter, options.Find().SetSort(eventOrder))
	if err != nil {
		log.Errorf("failed to query events: %v", err)
		return nil, err
	}
	defer cursor.Close(ctx)

	events := make([]Event, 0, 10)
	for cursor.Next(ctx) {
		var doc eventDocument
		if err := cursor.Decode(&doc); err != nil {
			log.Errorf("failed to decode event: %v", err)
			return nil, err
		}
		e, err := doc.toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := cursor.Err(); err != nil {
		log.Errorf("error iterating over events: %v", err)
		return nil, err
	}
	return events, nil
}

func toDocument(e Event) eventDocument {
	return eventDocument{
		OwnerId:     e.OwnerId,
		Name:        e.Name,
		Date:        e.Date.String(),
		Time:        e.Time,
		Venue:       e.Venue,
		Location:    e.Location,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (d eventDocument) toEvent() (Event, error) {
	date, err := civil.ParseDate(d.Date)
	if err != nil {
		err := fmt.Errorf("event %s has malformed date %q: %w", d.Id.Hex(), d.Date, err)
		log.Error(err)
		return Event{}, err
	}
	return Event{
		Id:          d.Id.Hex(),
		OwnerId:     d.OwnerId,
		Name:        d.Name,
		Date:        date,
		Time:        d.Time,
		Venue:       d.Venue,
		Location:    d.Location,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}
