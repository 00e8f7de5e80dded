package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Lock serializes deployment passes for one app via a DynamoDB
// conditional put. Without a table name every operation is a no-op.
type Lock struct {
	table  string
	client *dynamodb.Client
	lockID string
	owner  string
}

func NewLock(table string, client *dynamodb.Client) *Lock {
	return &Lock{table: table, client: client}
}

// Acquire takes the pass lock for the named app.
func (l *Lock) Acquire(ctx context.Context, app string) error {
	if l.table == "" {
		return nil
	}

	l.lockID = app
	l.owner = fmt.Sprintf("stackfn-%d-%d", os.Getpid(), time.Now().UnixNano())

	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.table),
		Item: map[string]dbtypes.AttributeValue{
			"LockID":  &dbtypes.AttributeValueMemberS{Value: l.lockID},
			"Owner":   &dbtypes.AttributeValueMemberS{Value: l.owner},
			"Created": &dbtypes.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_not_exists(LockID)"),
	})
	if err != nil {
		var conflict *dbtypes.ConditionalCheckFailedException
		if errors.As(err, &conflict) {
			return fmt.Errorf("a deployment pass for %q is already running. If this is stale, "+
				"delete the item with LockID=%q from DynamoDB table %q", app, l.lockID, l.table)
		}
		return fmt.Errorf("failed to acquire pass lock: %w", err)
	}
	return nil
}

// Release drops the pass lock.
func (l *Lock) Release(ctx context.Context) error {
	if l.table == "" || l.lockID == "" {
		return nil
	}
	_, err := l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.table),
		Key: map[string]dbtypes.AttributeValue{
			"LockID": &dbtypes.AttributeValueMemberS{Value: l.lockID},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to release pass lock: %w", err)
	}
	l.lockID = ""
	return nil
}
