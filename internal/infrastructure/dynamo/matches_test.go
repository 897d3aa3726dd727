package dynamo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sports-playlist/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI records calls and returns canned responses. Unset methods panic
// through the embedded nil interface.
type fakeAPI struct {
	API

	scanPages   []*dynamodb.ScanOutput
	scanInputs  []*dynamodb.ScanInput
	scanErr     error
	transacts   []*dynamodb.TransactWriteItemsInput
	transactErr func(call int) error
	putErr      error
	updateErr   error
	getOut      *dynamodb.GetItemOutput
	batchOuts   []*dynamodb.BatchGetItemOutput
	batchInputs []*dynamodb.BatchGetItemInput
	queryOut    *dynamodb.QueryOutput
	deleted     []map[string]types.AttributeValue
	deleteErr   error
}

func (f *fakeAPI) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scanInputs = append(f.scanInputs, in)
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	page := f.scanPages[0]
	f.scanPages = f.scanPages[1:]
	return page, nil
}

func (f *fakeAPI) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.transacts = append(f.transacts, in)
	if f.transactErr != nil {
		if err := f.transactErr(len(f.transacts)); err != nil {
			return nil, err
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeAPI) PutItem(_ context.Context, _ *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeAPI) UpdateItem(_ context.Context, _ *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func (f *fakeAPI) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return f.getOut, nil
}

func (f *fakeAPI) BatchGetItem(_ context.Context, in *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	f.batchInputs = append(f.batchInputs, in)
	out := f.batchOuts[0]
	f.batchOuts = f.batchOuts[1:]
	return out, nil
}

func (f *fakeAPI) Query(_ context.Context, _ *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return f.queryOut, nil
}

func (f *fakeAPI) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, in.Key)
	return &dynamodb.DeleteItemOutput{}, nil
}

func matchItem(t *testing.T, id string, status domain.MatchStatus) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(domain.Match{
		MatchID: id,
		Title:   "Match " + id,
		Date:    time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC),
		Status:  status,
	})
	require.NoError(t, err)
	return item
}

func TestMatchRepo_Scan_FollowsPages(t *testing.T) {
	api := &fakeAPI{scanPages: []*dynamodb.ScanOutput{
		{
			Items:            []map[string]types.AttributeValue{matchItem(t, "m1", domain.MatchStatusLive)},
			LastEvaluatedKey: strKey(attrMatchID, "m1"),
		},
		{Items: []map[string]types.AttributeValue{matchItem(t, "m2", domain.MatchStatusReplay)}},
	}}
	repo := NewMatchRepo(api, "matches")

	matches, err := repo.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "m1", matches[0].MatchID)
	assert.Equal(t, domain.MatchStatusReplay, matches[1].Status)
	require.Len(t, api.scanInputs, 2)
	assert.Equal(t, strKey(attrMatchID, "m1"), api.scanInputs[1].ExclusiveStartKey)
}

func TestMatchRepo_Scan_ErrorIsStoreError(t *testing.T) {
	repo := NewMatchRepo(&fakeAPI{scanErr: errors.New("connection reset")}, "matches")
	_, err := repo.Scan(context.Background())
	assert.ErrorIs(t, err, domain.ErrStore)
}

func TestMatchRepo_Get_MissingIsNotFound(t *testing.T) {
	repo := NewMatchRepo(&fakeAPI{getOut: &dynamodb.GetItemOutput{}}, "matches")
	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMatchRepo_Update_ConditionFailureIsNotFound(t *testing.T) {
	api := &fakeAPI{updateErr: &types.ConditionalCheckFailedException{}}
	repo := NewMatchRepo(api, "matches")
	err := repo.Update(context.Background(), &domain.Match{MatchID: "gone", Status: domain.MatchStatusLive})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMatchRepo_HardDelete_ConditionFailureIsNotFound(t *testing.T) {
	api := &fakeAPI{deleteErr: &types.ConditionalCheckFailedException{}}
	err := NewMatchRepo(api, "matches").HardDelete(context.Background(), "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMatchRepo_GetMany_RetriesUnprocessedKeys(t *testing.T) {
	api := &fakeAPI{batchOuts: []*dynamodb.BatchGetItemOutput{
		{
			Responses: map[string][]map[string]types.AttributeValue{
				"matches": {matchItem(t, "m1", domain.MatchStatusLive)},
			},
			UnprocessedKeys: map[string]types.KeysAndAttributes{
				"matches": {Keys: []map[string]types.AttributeValue{strKey(attrMatchID, "m2")}},
			},
		},
		{
			Responses: map[string][]map[string]types.AttributeValue{
				"matches": {matchItem(t, "m2", domain.MatchStatusReplay)},
			},
		},
	}}
	repo := NewMatchRepo(api, "matches")

	matches, err := repo.GetMany(context.Background(), []string{"m1", "m2"})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	assert.Len(t, api.batchInputs, 2)
}

func TestMatchSession_CommitBatch_WritesOnlyStatus(t *testing.T) {
	api := &fakeAPI{}
	s, err := NewMatchRepo(api, "matches").Begin(context.Background())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Update(&domain.Match{MatchID: "m1", Title: "ignored", Status: domain.MatchStatusLive}))
	require.NoError(t, s.CommitBatch(context.Background()))

	require.Len(t, api.transacts, 1)
	items := api.transacts[0].TransactItems
	require.Len(t, items, 1)
	upd := items[0].Update
	require.NotNil(t, upd)
	assert.Equal(t, "SET #s = :s", aws.ToString(upd.UpdateExpression))
	assert.Equal(t, "attribute_exists(match_id)", aws.ToString(upd.ConditionExpression))
	assert.Equal(t, map[string]string{"#s": "status"}, upd.ExpressionAttributeNames)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "Live"}, upd.ExpressionAttributeValues[":s"])
	assert.Equal(t, strKey(attrMatchID, "m1"), upd.Key)
}

func TestMatchSession_CommitBatch_ChunksLargePasses(t *testing.T) {
	api := &fakeAPI{}
	s, _ := NewMatchRepo(api, "matches").Begin(context.Background())
	defer s.Close()

	for i := range 250 {
		require.NoError(t, s.Update(&domain.Match{MatchID: fmt.Sprintf("m%03d", i), Status: domain.MatchStatusReplay}))
	}
	require.NoError(t, s.CommitBatch(context.Background()))

	require.Len(t, api.transacts, 3)
	assert.Len(t, api.transacts[0].TransactItems, 100)
	assert.Len(t, api.transacts[1].TransactItems, 100)
	assert.Len(t, api.transacts[2].TransactItems, 50)
}

func TestMatchSession_Update_SameMatchStagedOnce(t *testing.T) {
	api := &fakeAPI{}
	s, _ := NewMatchRepo(api, "matches").Begin(context.Background())
	defer s.Close()

	require.NoError(t, s.Update(&domain.Match{MatchID: "m1", Status: domain.MatchStatusLive}))
	require.NoError(t, s.Update(&domain.Match{MatchID: "m1", Status: domain.MatchStatusReplay}))
	require.NoError(t, s.CommitBatch(context.Background()))

	require.Len(t, api.transacts, 1)
	require.Len(t, api.transacts[0].TransactItems, 1)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "Replay"},
		api.transacts[0].TransactItems[0].Update.ExpressionAttributeValues[":s"])
}

func TestMatchSession_CommitBatch_FailureIsStoreError(t *testing.T) {
	api := &fakeAPI{transactErr: func(int) error { return &types.TransactionCanceledException{} }}
	s, _ := NewMatchRepo(api, "matches").Begin(context.Background())
	defer s.Close()

	require.NoError(t, s.Update(&domain.Match{MatchID: "m1", Status: domain.MatchStatusLive}))
	err := s.CommitBatch(context.Background())
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.ErrorContains(t, err, "transact match statuses: store error")

	var partial *domain.PartialCommitError
	assert.False(t, errors.As(err, &partial), "nothing was written")
}

func TestMatchSession_CommitBatch_SecondChunkFails_ReportsCommitted(t *testing.T) {
	api := &fakeAPI{transactErr: func(call int) error {
		if call == 2 {
			return &types.TransactionCanceledException{}
		}
		return nil
	}}
	s, _ := NewMatchRepo(api, "matches").Begin(context.Background())
	defer s.Close()

	var want []string
	for i := range 150 {
		id := fmt.Sprintf("m%03d", i)
		if i < 100 {
			want = append(want, id)
		}
		require.NoError(t, s.Update(&domain.Match{MatchID: id, Status: domain.MatchStatusLive}))
	}
	err := s.CommitBatch(context.Background())

	require.Len(t, api.transacts, 2)
	assert.ErrorIs(t, err, domain.ErrStore)
	var partial *domain.PartialCommitError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, want, partial.Committed)
	assert.ErrorContains(t, err, "100 changes committed before failure")
}

func TestMatchSession_ClosedErrors_NoOperationPrefix(t *testing.T) {
	s, _ := NewMatchRepo(&fakeAPI{}, "matches").Begin(context.Background())
	require.NoError(t, s.Close())

	_, err := s.ListAll(context.Background())
	assert.EqualError(t, err, "session closed: store error")
	assert.EqualError(t, s.CommitBatch(context.Background()), "session closed: store error")
}

func TestMatchSession_CommitBatch_NothingStaged_NoCall(t *testing.T) {
	api := &fakeAPI{}
	s, _ := NewMatchRepo(api, "matches").Begin(context.Background())
	defer s.Close()

	require.NoError(t, s.CommitBatch(context.Background()))
	assert.Empty(t, api.transacts)
}

func TestMatchSession_Close_DiscardsStaged(t *testing.T) {
	api := &fakeAPI{}
	s, _ := NewMatchRepo(api, "matches").Begin(context.Background())

	require.NoError(t, s.Update(&domain.Match{MatchID: "m1", Status: domain.MatchStatusLive}))
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.CommitBatch(context.Background()), domain.ErrStore)
	assert.ErrorIs(t, s.Update(&domain.Match{MatchID: "m2"}), domain.ErrStore)
	assert.Empty(t, api.transacts)
}
