package session

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/apresai/duet/internal/dialogue"
)

// fakeDynamo stores a single item and honours the conditions DynamoStore
// issues.
type fakeDynamo struct {
	item    map[string]types.AttributeValue
	lastPut *dynamodb.PutItemInput
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.item}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPut = in
	switch *in.ConditionExpression {
	case "attribute_not_exists(PK)":
		if f.item != nil {
			return nil, &types.ConditionalCheckFailedException{}
		}
	case "#version = :expected":
		want := in.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberN).Value
		have, ok := f.item["version"].(*types.AttributeValueMemberN)
		if !ok || have.Value != want {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	f.item = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if f.item == nil {
		return nil, &types.ConditionalCheckFailedException{}
	}
	f.item = nil
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if f.item == nil {
		return &dynamodb.QueryOutput{}, nil
	}
	return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{f.item}}, nil
}

func TestDynamoStore(t *testing.T) {
	ctx := context.Background()
	fake := &fakeDynamo{}
	store := NewDynamoStore(fake, "duet-sessions")

	sess := New("golang", "Ana")
	sess.History = []dialogue.Turn{{Speaker: "Ana", Text: "hello"}}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if sess.Version != 1 {
		t.Errorf("Version = %d, want 1", sess.Version)
	}

	var keys struct {
		PK     string `dynamodbav:"PK"`
		SK     string `dynamodbav:"SK"`
		GSI1PK string `dynamodbav:"GSI1PK"`
	}
	if err := attributevalue.UnmarshalMap(fake.lastPut.Item, &keys); err != nil {
		t.Fatalf("UnmarshalMap() error = %v", err)
	}
	if keys.PK != "SESSION#"+sess.ID || keys.SK != "STATE" || keys.GSI1PK != "SESSIONS" {
		t.Errorf("item keys = %+v", keys)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != sess.ID || got.UserName != "Ana" || len(got.History) != 1 || got.Version != 1 {
		t.Errorf("Get() = %+v", got)
	}

	stale := *got
	got.Step = 1
	if err := store.Save(ctx, got); err != nil {
		t.Fatalf("update Save() error = %v", err)
	}
	if err := store.Save(ctx, &stale); !errors.Is(err, ErrConflict) {
		t.Errorf("stale Save() error = %v, want ErrConflict", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].Step != 1 || list[0].Turns != 1 {
		t.Errorf("List() = %+v", list)
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v, want ErrNotFound", err)
	}
}
