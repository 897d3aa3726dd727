package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sports-playlist/internal/config"
)

const tableReadyTimeout = 2 * time.Minute

// Bootstrap creates the users, matches and playlists tables with their GSIs if they
// don't already exist, then waits until each is ACTIVE.
func Bootstrap(ctx context.Context, client API, tables config.DynamoTables, logger *slog.Logger) error {
	inputs := []*dynamodb.CreateTableInput{
		{
			TableName:   aws.String(tables.Users),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(attrUserID), AttributeType: types.ScalarAttributeTypeS},
				{AttributeName: aws.String(attrUsername), AttributeType: types.ScalarAttributeTypeS},
				{AttributeName: aws.String(attrEmail), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(attrUserID), KeyType: types.KeyTypeHash},
			},
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(indexUsername, attrUsername, ""),
				gsi(indexEmail, attrEmail, ""),
			},
		},
		{
			TableName:   aws.String(tables.Matches),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(attrMatchID), AttributeType: types.ScalarAttributeTypeS},
				{AttributeName: aws.String(attrStatus), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(attrMatchID), KeyType: types.KeyTypeHash},
			},
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(indexStatus, attrStatus, ""),
			},
		},
		{
			TableName:   aws.String(tables.Playlists),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(attrUserID), AttributeType: types.ScalarAttributeTypeS},
				{AttributeName: aws.String(attrMatchID), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(attrUserID), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String(attrMatchID), KeyType: types.KeyTypeRange},
			},
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(indexMatchID, attrMatchID, attrUserID),
			},
		},
	}

	for _, in := range inputs {
		if err := createTable(ctx, client, in, logger); err != nil {
			return err
		}
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	for _, in := range inputs {
		err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: in.TableName}, tableReadyTimeout)
		if err != nil {
			return fmt.Errorf("wait for table %s: %w", aws.ToString(in.TableName), err)
		}
	}
	return nil
}

// gsi builds a GSI descriptor. If sortKey is empty, only a hash key is added.
func gsi(indexName, hashKey, sortKey string) types.GlobalSecondaryIndex {
	ks := []types.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
	}
	if sortKey != "" {
		ks = append(ks, types.KeySchemaElement{
			AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange,
		})
	}
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(indexName),
		KeySchema:  ks,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTable(ctx context.Context, client API, input *dynamodb.CreateTableInput, logger *slog.Logger) error {
	_, err := client.CreateTable(ctx, input)
	if err == nil {
		logger.Info("created table", "table", aws.ToString(input.TableName))
		return nil
	}
	// ResourceInUseException means the table already exists.
	var riue *types.ResourceInUseException
	if errors.As(err, &riue) {
		return nil
	}
	return storeErr("create table "+aws.ToString(input.TableName), err)
}
