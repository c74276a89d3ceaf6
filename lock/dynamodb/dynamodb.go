// Package dynamodb implements lock.Locker with leases stored in a DynamoDB
// table. It coordinates writers that share an S3 or MinIO store.
//
// Table schema:
//   - Partition key: lock_key (string)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name imgdedup-locks \
//	  --attribute-definitions AttributeName=lock_key,AttributeType=S \
//	  --key-schema AttributeName=lock_key,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
//
// Optionally enable TTL on the expires_at_s attribute so abandoned items are
// purged.
//
// Leases are not renewed and writes are not fenced. Exclusion holds only
// while a load-modify-save cycle finishes within the TTL; a holder that
// overruns it gets lock.ErrNotHeld from Unlock, which the store reports
// as a failed update.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/hupe1980/imgdedup/lock"
)

// DefaultTTL bounds how long a crashed holder blocks a key.
const DefaultTTL = 30 * time.Second

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

var _ DDBClient = (*dynamodb.Client)(nil)

// Locker acquires leases with conditional writes.
type Locker struct {
	client    DDBClient
	tableName string
	ttl       time.Duration
	backoff   lock.Backoff
	now       func() time.Time
}

// Option configures a Locker.
type Option func(*Locker)

// WithTTL sets the lease duration.
func WithTTL(ttl time.Duration) Option {
	return func(l *Locker) {
		l.ttl = ttl
	}
}

// WithBackoff sets the polling schedule for contended keys.
func WithBackoff(b lock.Backoff) Option {
	return func(l *Locker) {
		l.backoff = b
	}
}

// New creates a DynamoDB locker on tableName.
func New(client DDBClient, tableName string, optFns ...Option) *Locker {
	l := &Locker{
		client:    client,
		tableName: tableName,
		ttl:       DefaultTTL,
		backoff:   lock.DefaultBackoff,
		now:       time.Now,
	}
	for _, fn := range optFns {
		fn(l)
	}
	return l
}

// Lock polls a conditional PutItem that succeeds when no lease exists or the
// existing one has expired.
func (l *Locker) Lock(ctx context.Context, key string) (lock.Unlocker, error) {
	owner := uuid.NewString()

	err := lock.Poll(ctx, l.backoff, func(ctx context.Context) (bool, error) {
		return l.tryAcquire(ctx, key, owner)
	})
	if err != nil {
		return nil, err
	}

	return lock.UnlockFunc(func(ctx context.Context) error {
		return l.release(ctx, key, owner)
	}), nil
}

func (l *Locker) tryAcquire(ctx context.Context, key, owner string) (bool, error) {
	now := l.now()
	expires := now.Add(l.ttl)

	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.tableName),
		Item: map[string]types.AttributeValue{
			"lock_key":     &types.AttributeValueMemberS{Value: key},
			"owner":        &types.AttributeValueMemberS{Value: owner},
			"expires_at":   &types.AttributeValueMemberN{Value: strconv.FormatInt(expires.UnixMilli(), 10)},
			"expires_at_s": &types.AttributeValueMemberN{Value: strconv.FormatInt(expires.Unix(), 10)},
		},
		ConditionExpression: aws.String("attribute_not_exists(lock_key) OR expires_at < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire lease in DynamoDB: %w", err)
	}
	return true, nil
}

func (l *Locker) release(ctx context.Context, key, owner string) error {
	_, err := l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.tableName),
		Key: map[string]types.AttributeValue{
			"lock_key": &types.AttributeValueMemberS{Value: key},
		},
		ConditionExpression: aws.String("#owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return lock.ErrNotHeld
		}
		return fmt.Errorf("failed to release lease in DynamoDB: %w", err)
	}
	return nil
}
