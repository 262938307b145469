package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterAndLoginOverREST(t *testing.T) {
	srv := startTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/api/register", "", `{"email":"alice@example.com","username":"alice","password":"password123"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var registered AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &registered))
	require.NotEmpty(t, registered.Token)
	require.Equal(t, "alice", registered.User.Username)

	// Duplicate registration.
	resp = doJSON(t, srv, http.MethodPost, "/api/register", "", `{"email":"alice@example.com","username":"alice2","password":"password123"}`)
	require.Equal(t, http.StatusConflict, resp.Code)

	resp = doJSON(t, srv, http.MethodPost, "/api/login", "", `{"email":"alice@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var loggedIn AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &loggedIn))
	require.NotEmpty(t, loggedIn.Token)

	resp = doJSON(t, srv, http.MethodPost, "/api/login", "", `{"email":"alice@example.com","password":"wrong-password"}`)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRegisterValidationOverREST(t *testing.T) {
	srv := startTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing email", `{"username":"alice","password":"password123"}`},
		{"short username", `{"email":"a@example.com","username":"ab","password":"password123"}`},
		{"short password", `{"email":"a@example.com","username":"alice","password":"short"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, srv, http.MethodPost, "/api/register", "", tc.body)
			require.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}
}

func TestProfileAndSettingsOverREST(t *testing.T) {
	srv := startTestServer(t)

	token, userID := registerUser(t, srv, "alice@example.com", "alice")

	resp := doJSON(t, srv, http.MethodPut, "/api/me/profile", token, `{"display_name":"Alice A.","bio":"night runner","avatar_url":""}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = doJSON(t, srv, http.MethodGet, "/api/users/"+userID, token, "")
	require.Equal(t, http.StatusOK, resp.Code)

	var profile UserResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &profile))
	require.Equal(t, "Alice A.", profile.DisplayName)
	require.Equal(t, "night runner", profile.Bio)

	resp = doJSON(t, srv, http.MethodPut, "/api/me/settings", token, `{"profile_visibility":"friends","allow_friend_requests":false,"email_notifications":true}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = doJSON(t, srv, http.MethodGet, "/api/me/settings", token, "")
	require.Equal(t, http.StatusOK, resp.Code)

	var settings SettingsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &settings))
	require.Equal(t, "friends", settings.ProfileVisibility)
	require.False(t, settings.AllowFriendRequests)
	require.True(t, settings.EmailNotifications)
}

func TestFriendFlowOverREST(t *testing.T) {
	srv := startTestServer(t)

	tokenA, _ := registerUser(t, srv, "alice@example.com", "alice")
	tokenB, userB := registerUser(t, srv, "bob@example.com", "bob")

	resp := doJSON(t, srv, http.MethodPost, "/api/friends/requests", tokenA, `{"user_id":"`+userB+`"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var friendResp FriendResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &friendResp))
	require.Equal(t, "pending", friendResp.Status)
	require.Equal(t, "bob", friendResp.FriendUsername)

	resp = doJSON(t, srv, http.MethodGet, "/api/friends/requests/incoming", tokenB, "")
	require.Equal(t, http.StatusOK, resp.Code)

	var incoming []FriendResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &incoming))
	require.Len(t, incoming, 1)

	resp = doJSON(t, srv, http.MethodPost, "/api/friends/"+incoming[0].UserID+"/accept", tokenB, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = doJSON(t, srv, http.MethodGet, "/api/friends", tokenA, "")
	require.Equal(t, http.StatusOK, resp.Code)

	var friendsList []FriendResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &friendsList))
	require.Len(t, friendsList, 1)
	require.Equal(t, "accepted", friendsList[0].Status)
}

func TestFeedOverREST(t *testing.T) {
	srv := startTestServer(t)

	tokenA, _ := registerUser(t, srv, "alice@example.com", "alice")
	tokenB, _ := registerUser(t, srv, "bob@example.com", "bob")

	resp := doJSON(t, srv, http.MethodPost, "/api/posts", tokenA, `{"body":"first shadow run done","visibility":"public"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = doJSON(t, srv, http.MethodPost, "/api/posts", tokenA, `{"body":"private note","visibility":"private"}`)
	require.Equal(t, http.StatusCreated, resp.Code)

	// Bob only sees the public post.
	resp = doJSON(t, srv, http.MethodGet, "/api/feed", tokenB, "")
	require.Equal(t, http.StatusOK, resp.Code)

	var feed []PostResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &feed))
	require.Len(t, feed, 1)
	require.Equal(t, "first shadow run done", feed[0].Body)

	// Alice sees both.
	resp = doJSON(t, srv, http.MethodGet, "/api/feed", tokenA, "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &feed))
	require.Len(t, feed, 2)
}
