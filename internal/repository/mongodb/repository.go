package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hostelhub/feeledger/internal/domain/models"
)

const (
	feesCollection     = "monthly_fees"
	paymentsCollection = "fee_payments"
	modesCollection    = "payment_modes"
	reportsCollection  = "collection_reports"
)

var (
	// ErrNotFound is returned when no fee matches the natural key.
	ErrNotFound = errors.New("fee record not found")
	// ErrBalanceChanged means the fee balance moved since it was read.
	ErrBalanceChanged = errors.New("fee balance changed concurrently")
	// ErrDuplicatePayment means a payment with the same idempotency key exists.
	ErrDuplicatePayment = errors.New("payment already recorded")
)

// BalanceUpdate moves one fee record from PrevBalance to NewBalance.
type BalanceUpdate struct {
	HostelID    int64
	StudentID   int64
	FeeMonth    string
	PrevBalance decimal.Decimal
	PrevStatus  models.FeeStatus
	NewBalance  decimal.Decimal
	NewStatus   models.FeeStatus
}

// Repository defines the ledger storage operations.
type Repository interface {
	EnsureIndexes(ctx context.Context) error
	SeedPaymentModes(ctx context.Context, modes []models.PaymentMode) error
	ListFees(ctx context.Context, hostelID int64, filter models.FeeFilter) ([]models.FeeRecord, error)
	GetFee(ctx context.Context, hostelID, studentID int64, feeMonth string) (models.FeeRecord, error)
	InsertFees(ctx context.Context, fees []models.FeeRecord) (int, error)
	ApplyPayment(ctx context.Context, update BalanceUpdate, payment models.Payment) (models.Payment, error)
	PaymentExists(ctx context.Context, key string) (bool, error)
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)
	ListPaymentModes(ctx context.Context) ([]models.PaymentMode, error)
	ListPayments(ctx context.Context, hostelID int64, start, end time.Time) ([]models.Payment, error)
	SaveCollectionReport(ctx context.Context, report models.CollectionReport) error
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return NewMongoDBRepositoryFromClient(client, dbName), nil
}

// NewMongoDBRepositoryFromClient wraps an already connected client.
func NewMongoDBRepositoryFromClient(client *mongo.Client, dbName string) *MongoDBRepository {
	return &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		now:    time.Now,
	}
}

// EnsureIndexes creates the natural-key and idempotency indexes.
func (r *MongoDBRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(feesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "hostel_id", Value: 1}, {Key: "student_id", Value: 1}, {Key: "fee_month", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("fee_natural_key"),
		},
		{
			Keys: bson.D{{Key: "fee_status", Value: 1}, {Key: "due_date", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create fee indexes: %w", err)
	}

	_, err = r.db.Collection(paymentsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "idempotency_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("payment_idempotency_key"),
		},
		{
			Keys: bson.D{{Key: "hostel_id", Value: 1}, {Key: "created_at", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create payment indexes: %w", err)
	}

	return nil
}

// SeedPaymentModes inserts the given modes unless they already exist.
func (r *MongoDBRepository) SeedPaymentModes(ctx context.Context, modes []models.PaymentMode) error {
	coll := r.db.Collection(modesCollection)
	for _, mode := range modes {
		_, err := coll.UpdateOne(ctx,
			bson.M{"_id": mode.ID},
			bson.M{"$setOnInsert": bson.M{"name": mode.Name}},
			options.Update().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("seed payment mode %s: %w", mode.Name, err)
		}
	}
	return nil
}

// ListFees returns a hostel's fees, newest due date first, then by student name.
func (r *MongoDBRepository) ListFees(ctx context.Context, hostelID int64, filter models.FeeFilter) ([]models.FeeRecord, error) {
	query := bson.M{"hostel_id": hostelID}
	if filter.Status != "" {
		query["fee_status"] = string(filter.Status)
	}
	if filter.Month != "" {
		query["fee_month"] = filter.Month
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "due_date", Value: -1},
		{Key: "last_name", Value: 1},
		{Key: "first_name", Value: 1},
	})

	cursor, err := r.db.Collection(feesCollection).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find fees: %w", err)
	}

	var docs []feeDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode fees: %w", err)
	}

	fees := make([]models.FeeRecord, 0, len(docs))
	for _, doc := range docs {
		fee, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		fees = append(fees, fee)
	}
	return fees, nil
}

// GetFee loads one fee by its natural key.
func (r *MongoDBRepository) GetFee(ctx context.Context, hostelID, studentID int64, feeMonth string) (models.FeeRecord, error) {
	var doc feeDocument
	err := r.db.Collection(feesCollection).
		FindOne(ctx, naturalKey(hostelID, studentID, feeMonth)).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.FeeRecord{}, ErrNotFound
	}
	if err != nil {
		return models.FeeRecord{}, fmt.Errorf("find fee: %w", err)
	}
	return doc.toModel()
}

// InsertFees creates fee records whose natural key does not exist yet and
// reports how many were created. Existing records are left untouched.
func (r *MongoDBRepository) InsertFees(ctx context.Context, fees []models.FeeRecord) (int, error) {
	if len(fees) == 0 {
		return 0, nil
	}

	now := r.now().UTC()
	writes := make([]mongo.WriteModel, 0, len(fees))
	for _, fee := range fees {
		doc, err := newFeeDocument(fee, now)
		if err != nil {
			return 0, err
		}
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(naturalKey(fee.HostelID, fee.StudentID, fee.FeeMonth)).
			SetUpdate(bson.M{"$setOnInsert": doc}).
			SetUpsert(true))
	}

	res, err := r.db.Collection(feesCollection).BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("insert fees: %w", err)
	}
	return int(res.UpsertedCount), nil
}

// ApplyPayment stores the payment and then moves the fee balance. The balance
// update only matches when the stored balance still equals PrevBalance; when it
// does not, the payment is removed again so no payment exists without its
// balance move.
func (r *MongoDBRepository) ApplyPayment(ctx context.Context, update BalanceUpdate, payment models.Payment) (models.Payment, error) {
	prev, err := toDecimal128(update.PrevBalance)
	if err != nil {
		return models.Payment{}, err
	}
	next, err := toDecimal128(update.NewBalance)
	if err != nil {
		return models.Payment{}, err
	}

	now := r.now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	doc, err := newPaymentDocument(payment)
	if err != nil {
		return models.Payment{}, err
	}
	doc.ID = primitive.NewObjectID()

	if _, err := r.db.Collection(paymentsCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Payment{}, ErrDuplicatePayment
		}
		return models.Payment{}, fmt.Errorf("insert payment: %w", err)
	}

	filter := naturalKey(update.HostelID, update.StudentID, update.FeeMonth)
	filter["balance"] = prev

	res, err := r.db.Collection(feesCollection).UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"balance":    next,
		"fee_status": string(update.NewStatus),
		"updated_at": now,
	}})
	switch {
	case err != nil:
		err = fmt.Errorf("update fee balance: %w", err)
	case res.MatchedCount == 0:
		err = ErrBalanceChanged
	default:
		payment.ID = doc.ID.Hex()
		return payment, nil
	}

	if undoErr := r.removePayment(ctx, doc.ID); undoErr != nil {
		return models.Payment{}, errors.Join(err, undoErr)
	}
	return models.Payment{}, err
}

// removePayment deletes a payment whose balance move did not apply.
func (r *MongoDBRepository) removePayment(ctx context.Context, id primitive.ObjectID) error {
	if _, err := r.db.Collection(paymentsCollection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("remove orphaned payment %s: %w", id.Hex(), err)
	}
	return nil
}

// PaymentExists reports whether a payment was stored under the idempotency key.
func (r *MongoDBRepository) PaymentExists(ctx context.Context, key string) (bool, error) {
	n, err := r.db.Collection(paymentsCollection).CountDocuments(ctx,
		bson.M{"idempotency_key": key}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count payments by key: %w", err)
	}
	return n > 0, nil
}

// MarkOverdue flips Pending fees whose due date is before today to Overdue.
func (r *MongoDBRepository) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	res, err := r.db.Collection(feesCollection).UpdateMany(ctx,
		bson.M{
			"fee_status": string(models.StatusPending),
			"due_date":   bson.M{"$lt": today},
		},
		bson.M{"$set": bson.M{
			"fee_status": string(models.StatusOverdue),
			"updated_at": r.now().UTC(),
		}})
	if err != nil {
		return 0, fmt.Errorf("mark overdue fees: %w", err)
	}
	return res.ModifiedCount, nil
}

// ListPaymentModes returns the payment mode lookup ordered by id.
func (r *MongoDBRepository) ListPaymentModes(ctx context.Context) ([]models.PaymentMode, error) {
	cursor, err := r.db.Collection(modesCollection).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find payment modes: %w", err)
	}

	modes := make([]models.PaymentMode, 0)
	if err := cursor.All(ctx, &modes); err != nil {
		return nil, fmt.Errorf("decode payment modes: %w", err)
	}
	return modes, nil
}

// ListPayments returns the payments recorded for a hostel in [start, end).
func (r *MongoDBRepository) ListPayments(ctx context.Context, hostelID int64, start, end time.Time) ([]models.Payment, error) {
	cursor, err := r.db.Collection(paymentsCollection).Find(ctx, bson.M{
		"hostel_id":  hostelID,
		"created_at": bson.M{"$gte": start, "$lt": end},
	}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find payments: %w", err)
	}

	var docs []paymentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode payments: %w", err)
	}

	payments := make([]models.Payment, 0, len(docs))
	for _, doc := range docs {
		p, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

// SaveCollectionReport saves a collection report to the database.
func (r *MongoDBRepository) SaveCollectionReport(ctx context.Context, report models.CollectionReport) error {
	collected, err := toDecimal128(report.Collected)
	if err != nil {
		return err
	}
	outstanding, err := toDecimal128(report.Outstanding)
	if err != nil {
		return err
	}

	_, err = r.db.Collection(reportsCollection).InsertOne(ctx, reportDocument{
		HostelID:      report.HostelID,
		PeriodStart:   report.PeriodStart,
		PeriodEnd:     report.PeriodEnd,
		Collected:     collected,
		PaymentsCount: report.PaymentsCount,
		Outstanding:   outstanding,
		PaidCount:     report.PaidCount,
		PartialCount:  report.PartialCount,
		PendingCount:  report.PendingCount,
		OverdueCount:  report.OverdueCount,
		CreatedAt:     report.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to insert collection report: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func naturalKey(hostelID, studentID int64, feeMonth string) bson.M {
	return bson.M{"hostel_id": hostelID, "student_id": studentID, "fee_month": feeMonth}
}
