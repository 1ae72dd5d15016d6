package friends_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careersim/bff/internal/app/apptest"
	"github.com/careersim/bff/internal/auth"
	"github.com/careersim/bff/internal/db"
	svcErr "github.com/careersim/bff/internal/errors"
	"github.com/careersim/bff/internal/middleware"
	"github.com/careersim/bff/internal/service/friends"
	"github.com/careersim/bff/internal/service/notifications"
	"github.com/careersim/bff/internal/service/profile"
)

//
// Test helpers
//

// seedUsers inserts alice, bob, carol and dave and returns their current-user views.
func seedUsers(t *testing.T, env *apptest.Env) map[string]*auth.CurrentUser {
	t.Helper()
	out := map[string]*auth.CurrentUser{}
	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		p := db.Profile{ID: "id-" + name, Username: name, IsActive: true}
		require.NoError(t, env.App.DB.Create(&p).Error)
		out[name] = &auth.CurrentUser{ID: p.ID, Username: p.Username, Email: name + "@test.io"}
	}
	return out
}

func setup(t *testing.T) (*apptest.Env, *friends.Service, map[string]*auth.CurrentUser) {
	t.Helper()
	env := apptest.New(t)
	return env, friends.NewService(env.App), seedUsers(t, env)
}

func kindOf(err error) svcErr.Kind { return svcErr.KindOf(err) }

//
// Tests
//

func TestCreateRequest_NotifiesRecipient(t *testing.T) {
	ctx := context.Background()
	env, svc, u := setup(t)

	fr, err := svc.CreateRequest(ctx, u["alice"], friends.CreateRequestInput{Username: "bob"})
	require.NoError(t, err)
	assert.Equal(t, db.FriendRequestPending, fr.Status)
	assert.Equal(t, u["bob"].ID, fr.RecipientID)

	var n db.Notification
	require.NoError(t, env.App.DB.Where("user_id = ?", u["bob"].ID).First(&n).Error)
	assert.Equal(t, db.NotificationFriendRequest, n.Type)
	assert.Equal(t, "alice sent you a friend request", n.Message)
	require.NotNil(t, n.Data)
	assert.Equal(t, u["alice"].ID, *n.Data)
	assert.False(t, n.IsRead)
}

func TestCreateRequest_ByUserIDFirst(t *testing.T) {
	ctx := context.Background()
	_, svc, u := setup(t)

	fr, err := svc.CreateRequest(ctx, u["alice"], friends.CreateRequestInput{UserID: u["carol"].ID, Username: "bob"})
	require.NoError(t, err)
	assert.Equal(t, u["carol"].ID, fr.RecipientID)

	// unknown id falls back to username
	fr, err = svc.CreateRequest(ctx, u["alice"], friends.CreateRequestInput{UserID: "ghost", Username: "bob"})
	require.NoError(t, err)
	assert.Equal(t, u["bob"].ID, fr.RecipientID)
}

func TestCreateRequest_Errors(t *testing.T) {
	ctx := context.Background()
	_, svc, u := setup(t)

	_, err := svc.CreateRequest(ctx, u["alice"], friends.CreateRequestInput{})
	assert.Equal(t, svcErr.KindInvalidInput, kindOf(err))

	_, err = svc.CreateRequest(ctx, u["alice"], friends.CreateRequestInput{Username: "nobody"})
	assert.Equal(t, svcErr.KindNotFound, kindOf(err))

	_, err = svc.CreateRequest(ctx, u["alice"], friends.CreateRequestInput{Username: "alice"})
	assert.Equal(t, svcErr.KindNotFound, kindOf(err))
}

func TestCreateRequest_ConflictIsCommutative(t *testing.T) {
	ctx := context.Background()
	env, svc, u := setup(t)

	_, err := svc.CreateRequest(ctx, u["bob"], friends.CreateRequestInput{Username: "alice"})
	require.NoError(t, err)

	_, err = svc.CreateRequest(ctx, u["alice"], friends.CreateRequestInput{Username: "bob"})
	assert.Equal(t, svcErr.KindConflict, kindOf(err))
	assert.Equal(t, "Friend request already exists", svcErr.PublicMessage(err))

	// the rejected request wrote no notification for bob
	var count int64
	require.NoError(t, env.App.DB.Model(&db.Notification{}).Where("user_id = ?", u["bob"].ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRespond_ExactlyOnce(t *testing.T) {
	ctx := context.Background()
	env, svc, u := setup(t)

	fr, err := svc.CreateRequest(ctx, u["alice"], friends.CreateRequestInput{Username: "bob"})
	require.NoError(t, err)

	// not the recipient
	err = svc.Respond(ctx, u["carol"], fr.ID, true)
	assert.Equal(t, svcErr.KindNotFound, kindOf(err))

	require.NoError(t, svc.Respond(ctx, u["bob"], fr.ID, true))

	err = svc.Respond(ctx, u["bob"], fr.ID, true)
	assert.Equal(t, svcErr.KindNotFound, kindOf(err))
	err = svc.Respond(ctx, u["bob"], fr.ID, false)
	assert.Equal(t, svcErr.KindNotFound, kindOf(err))

	var stored db.FriendRequest
	require.NoError(t, env.App.DB.First(&stored, "id = ?", fr.ID).Error)
	assert.Equal(t, db.FriendRequestAccepted, stored.Status)
	assert.NotNil(t, stored.RespondedAt)

	var n db.Notification
	require.NoError(t, env.App.DB.Where("user_id = ? AND type = ?", u["alice"].ID, db.NotificationFriendAccept).First(&n).Error)
	assert.Equal(t, "bob accepted your friend request", n.Message)

	// accepted blocks a new request in both directions
	_, err = svc.CreateRequest(ctx, u["bob"], friends.CreateRequestInput{Username: "alice"})
	assert.Equal(t, svcErr.KindConflict, kindOf(err))
}

func TestDecline_AllowsResend(t *testing.T) {
	ctx := context.Background()
	env, svc, u := setup(t)

	fr, err := svc.CreateRequest(ctx, u["alice"], friends.CreateRequestInput{Username: "bob"})
	require.NoError(t, err)
	require.NoError(t, svc.Respond(ctx, u["bob"], fr.ID, false))

	// decline sends no notification to alice
	var count int64
	require.NoError(t, env.App.DB.Model(&db.Notification{}).Where("user_id = ?", u["alice"].ID).Count(&count).Error)
	assert.Zero(t, count)

	_, err = svc.CreateRequest(ctx, u["alice"], friends.CreateRequestInput{Username: "bob"})
	assert.NoError(t, err)
}

func TestListPending_NewestFirst(t *testing.T) {
	ctx := context.Background()
	env, svc, u := setup(t)

	first, err := svc.CreateRequest(ctx, u["bob"], friends.CreateRequestInput{Username: "alice"})
	require.NoError(t, err)
	second, err := svc.CreateRequest(ctx, u["carol"], friends.CreateRequestInput{Username: "alice"})
	require.NoError(t, err)
	_, err = svc.CreateRequest(ctx, u["alice"], friends.CreateRequestInput{Username: "dave"})
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, env.App.DB.Model(&db.FriendRequest{}).Where("id = ?", first.ID).Update("created_at", base.Add(-time.Minute)).Error)
	require.NoError(t, env.App.DB.Model(&db.FriendRequest{}).Where("id = ?", second.ID).Update("created_at", base).Error)

	pending, err := svc.ListPending(ctx, u["alice"].ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "carol", pending[0].Requester.Username)
	assert.Equal(t, "bob", pending[1].Requester.Username)
}

func TestListPending_UnknownRequester(t *testing.T) {
	ctx := context.Background()
	env, svc, u := setup(t)

	fr, err := svc.CreateRequest(ctx, u["bob"], friends.CreateRequestInput{Username: "alice"})
	require.NoError(t, err)
	require.NoError(t, env.App.DB.Delete(&db.Profile{}, "id = ?", u["bob"].ID).Error)

	pending, err := svc.ListPending(ctx, u["alice"].ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, fr.ID, pending[0].ID)
	assert.Equal(t, "Unknown", pending[0].Requester.Username)
	assert.Equal(t, u["bob"].ID, pending[0].Requester.ID)
}

func TestListFriends(t *testing.T) {
	ctx := context.Background()
	_, svc, u := setup(t)

	// alice → carol accepted, dave → alice accepted, alice → bob pending
	toCarol, err := svc.CreateRequest(ctx, u["alice"], friends.CreateRequestInput{Username: "carol"})
	require.NoError(t, err)
	require.NoError(t, svc.Respond(ctx, u["carol"], toCarol.ID, true))
	fromDave, err := svc.CreateRequest(ctx, u["dave"], friends.CreateRequestInput{Username: "alice"})
	require.NoError(t, err)
	require.NoError(t, svc.Respond(ctx, u["alice"], fromDave.ID, true))
	_, err = svc.CreateRequest(ctx, u["alice"], friends.CreateRequestInput{Username: "bob"})
	require.NoError(t, err)

	list, err := svc.ListFriends(ctx, u["alice"].ID)
	require.NoError(t, err)
	names := []string{}
	for _, f := range list {
		names = append(names, f.Username)
	}
	assert.Equal(t, []string{"carol", "dave"}, names)

	list, err = svc.ListFriends(ctx, u["bob"].ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	_, svc, u := setup(t)

	out, err := svc.Search(ctx, u["alice"].ID, "A")
	require.NoError(t, err)
	names := []string{}
	for _, s := range out {
		names = append(names, s.Username)
	}
	// alice matches but is the caller
	assert.ElementsMatch(t, []string{"carol", "dave"}, names)

	_, err = svc.Search(ctx, u["alice"].ID, " ")
	assert.Equal(t, svcErr.KindInvalidInput, kindOf(err))
}

func TestCreateRequest_InvalidatesUnreadCache(t *testing.T) {
	ctx := context.Background()
	env, svc, u := setup(t)
	inbox := notifications.NewService(env.App)

	count, err := inbox.UnreadCount(ctx, u["bob"].ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.True(t, env.Redis.Exists(env.App.RedisCache.KeyForUnreadCount(u["bob"].ID)))

	_, err = svc.CreateRequest(ctx, u["alice"], friends.CreateRequestInput{Username: "bob"})
	require.NoError(t, err)
	assert.False(t, env.Redis.Exists(env.App.RedisCache.KeyForUnreadCount(u["bob"].ID)))

	count, err = inbox.UnreadCount(ctx, u["bob"].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

//
// HTTP
//

func TestHTTP_RequestLifecycle(t *testing.T) {
	env := apptest.New(t)
	guards := middleware.NewGuards(env.App.Verifier, profile.NewResolver(env.App), env.App.Logger)
	r := apptest.Engine()
	friends.NewRegistrar(env.App).RegisterRoutes(r.Group("/api"), guards)

	alice := apptest.Token("id-alice", "alice@test.io")
	bob := apptest.Token("id-bob", "bob@test.io")

	call := func(method, path, token, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	// first contact creates both profiles lazily
	require.Equal(t, http.StatusOK, call(http.MethodGet, "/api/friends/list", bob, "").Code)

	rec := call(http.MethodPost, "/api/friends/request", alice, `{"username":"bob"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var fr db.FriendRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fr))

	rec = call(http.MethodPost, "/api/friends/request", alice, `{"username":"bob"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"Friend request already exists"}`, rec.Body.String())

	rec = call(http.MethodPost, "/api/friends/request", alice, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"Username or user_id required"}`, rec.Body.String())

	rec = call(http.MethodGet, "/api/friends/requests", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)

	rec = call(http.MethodPost, "/api/friends/requests/"+fr.ID+"/accept", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = call(http.MethodPost, "/api/friends/requests/"+fr.ID+"/decline", bob, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Request not found"}`, rec.Body.String())

	rec = call(http.MethodGet, "/api/friends/list", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"bob"`)
}
