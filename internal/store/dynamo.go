package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chitrakala/auth-service/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DynamoStore is a single-table DynamoDB backend. Users are keyed by phone
// number with a pointer item for id lookups; sessions are keyed by token and
// carry a TTL attribute so the table can evict long-expired rows, with the
// expiry still checked in code for correctness.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewDynamoStore(client *dynamodb.Client, tableName string, logger *logrus.Logger) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func userPK(phoneNumber string) string {
	u := models.User{PhoneNumber: phoneNumber}
	return u.GetPK()
}

func userIDPK(id string) string     { return "USERID#" + id }
func sessionPK(token string) string { return "SESSION#" + token }

const metadataSK = "METADATA"

func (s *DynamoStore) CreateUser(ctx context.Context, phoneNumber string) (*models.User, error) {
	now := time.Now()
	user := &models.User{
		ID:          uuid.New().String(),
		PhoneNumber: phoneNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: userPK(phoneNumber)}
	item["SK"] = &types.AttributeValueMemberS{Value: metadataSK}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return nil, ErrUserExists
		}
		s.logger.WithError(err).Error("Failed to create user in DynamoDB")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Pointer item so GetUserByID can resolve the phone-keyed record.
	pointer := map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: userIDPK(user.ID)},
		"SK":           &types.AttributeValueMemberS{Value: metadataSK},
		"phone_number": &types.AttributeValueMemberS{Value: phoneNumber},
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      pointer,
	}); err != nil {
		s.logger.WithError(err).Error("Failed to create user id pointer in DynamoDB")
		return nil, fmt.Errorf("failed to create user pointer: %w", err)
	}

	return user, nil
}

func (s *DynamoStore) GetUserByPhone(ctx context.Context, phoneNumber string) (*models.User, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(phoneNumber)},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to get user from DynamoDB")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(result.Item, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}

func (s *DynamoStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userIDPK(id)},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user pointer: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	phoneAttr, ok := result.Item["phone_number"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("user pointer item missing phone_number")
	}
	return s.GetUserByPhone(ctx, phoneAttr.Value)
}

func (s *DynamoStore) UpdateUserLanguage(ctx context.Context, id, language string) error {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(user.PhoneNumber)},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
		UpdateExpression: aws.String("SET #language = :language, updated_at = :updated_at"),
		ExpressionAttributeNames: map[string]string{
			"#language": "language",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":language":   &types.AttributeValueMemberS{Value: language},
			":updated_at": &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
		},
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to update user language in DynamoDB")
		return fmt.Errorf("failed to update user language: %w", err)
	}
	return nil
}

func (s *DynamoStore) CreateSession(ctx context.Context, userID, token string, expiresAt time.Time) (*models.Session, error) {
	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}

	item, err := attributevalue.MarshalMap(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: sessionPK(token)}
	item["SK"] = &types.AttributeValueMemberS{Value: metadataSK}
	item["TTL"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to create session in DynamoDB")
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

func (s *DynamoStore) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(token)},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to get session from DynamoDB")
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var session models.Session
	if err := attributevalue.UnmarshalMap(result.Item, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	// Table TTL eviction lags; enforce expiry here as well.
	if session.Expired(time.Now()) {
		return nil, nil
	}
	return &session, nil
}

func (s *DynamoStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(token)},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *DynamoStore) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	return err
}

func (s *DynamoStore) Close() error {
	return nil
}
