package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the slice of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

const (
	sessionSK     = "STATE"
	sessionGSI1PK = "SESSIONS"
)

// sessionItem is the DynamoDB record for a session. Session fields are
// flattened into the item using their json names.
type sessionItem struct {
	PK     string `json:"PK"`
	SK     string `json:"SK"`
	GSI1PK string `json:"GSI1PK"`
	GSI1SK string `json:"GSI1SK"`
	Session
}

// DynamoStore implements Store on a single DynamoDB table keyed by
// PK=SESSION#{id}, SK=STATE, with GSI1 listing sessions by update time.
type DynamoStore struct {
	client    DynamoAPI
	tableName string
}

func NewDynamoStore(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

func sessionKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "SESSION#" + id},
		"SK": &types.AttributeValueMemberS{Value: sessionSK},
	}
}

func useJSONTags(o *attributevalue.EncoderOptions) { o.TagKey = "json" }

func useJSONTagsDecode(o *attributevalue.DecoderOptions) { o.TagKey = "json" }

func (s *DynamoStore) Get(ctx context.Context, id string) (*Session, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &s.tableName,
		Key:            sessionKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storageErr("get", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var item sessionItem
	if err := attributevalue.UnmarshalMapWithOptions(result.Item, &item, useJSONTagsDecode); err != nil {
		return nil, storageErr("get", fmt.Errorf("unmarshal session: %w", err))
	}
	sess := item.Session
	sess.normalize()
	return &sess, nil
}

func (s *DynamoStore) Save(ctx context.Context, sess *Session) error {
	next := *sess
	next.normalize()
	next.Version = sess.Version + 1
	next.stamp(time.Now().UTC())

	item := sessionItem{
		PK:      "SESSION#" + next.ID,
		SK:      sessionSK,
		GSI1PK:  sessionGSI1PK,
		GSI1SK:  next.UpdatedAt.Format(time.RFC3339Nano) + "#" + next.ID,
		Session: next,
	}
	av, err := attributevalue.MarshalMapWithOptions(item, useJSONTags)
	if err != nil {
		return storageErr("save", fmt.Errorf("marshal session item: %w", err))
	}

	input := &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      av,
	}
	if sess.Version == 0 {
		input.ConditionExpression = aws.String("attribute_not_exists(PK)")
	} else {
		input.ConditionExpression = aws.String("#version = :expected")
		input.ExpressionAttributeNames = map[string]string{"#version": "version"}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(sess.Version, 10)},
		}
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrConflict
		}
		return storageErr("save", fmt.Errorf("put session item: %w", err))
	}

	*sess = next
	return nil
}

// List returns sessions ordered by update time (newest first) via GSI1.
func (s *DynamoStore) List(ctx context.Context) ([]Summary, error) {
	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: sessionGSI1PK},
		},
		ScanIndexForward: aws.Bool(false),
	}

	var out []Summary
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, storageErr("list", err)
		}
		var items []sessionItem
		if err := attributevalue.UnmarshalListOfMapsWithOptions(result.Items, &items, useJSONTagsDecode); err != nil {
			return nil, storageErr("list", fmt.Errorf("unmarshal session list: %w", err))
		}
		for i := range items {
			out = append(out, items[i].Session.Summary())
		}
		if len(result.LastEvaluatedKey) == 0 {
			return out, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

func (s *DynamoStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           &s.tableName,
		Key:                 sessionKey(id),
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrNotFound
		}
		return storageErr("delete", err)
	}
	return nil
}

func (s *DynamoStore) Close() error { return nil }
