package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/streamhive/backend/internal/models"
)

func TestCreatePlaylistRequiresNameAndDescription(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "owner", "owner@example.com", "password1")
	pair := env.login(t, user)

	rec := env.doJSON(t, http.MethodPost, "/api/v1/playlists", pair.AccessToken, playlistRequest{Name: "only name"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}

	rec = env.doJSON(t, http.MethodPost, "/api/v1/playlists", pair.AccessToken, playlistRequest{
		Name:        "watch later",
		Description: "things to watch",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var created models.Playlist
	decodeData(t, rec, &created)
	if created.Owner != user.ID {
		t.Fatalf("expected playlist owned by caller, got %s", created.Owner.Hex())
	}
	if created.Videos == nil || len(created.Videos) != 0 {
		t.Fatalf("expected empty video list, got %v", created.Videos)
	}
}

func TestAddVideoToPlaylist(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "owner", "owner@example.com", "password1")
	pair := env.login(t, user)

	video, _ := env.videos.Create(context.Background(), models.Video{Title: "v", Owner: user.ID})
	playlist, _ := env.playlists.Create(context.Background(), models.Playlist{Name: "p", Owner: user.ID})

	target := "/api/v1/playlists/add/" + video.ID.Hex() + "/" + playlist.ID.Hex()

	rec := env.doJSON(t, http.MethodPatch, target, pair.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	// Adding the same video twice is a conflict.
	rec = env.doJSON(t, http.MethodPatch, target, pair.AccessToken, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d got %d", http.StatusConflict, rec.Code)
	}
}

func TestAddUnknownVideoToPlaylist(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "owner", "owner@example.com", "password1")
	pair := env.login(t, user)

	playlist, _ := env.playlists.Create(context.Background(), models.Playlist{Name: "p", Owner: user.ID})

	rec := env.doJSON(t, http.MethodPatch, "/api/v1/playlists/add/ffffffffffffffffffffffff/"+playlist.ID.Hex(), pair.AccessToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestRemoveAbsentVideoFromPlaylist(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "owner", "owner@example.com", "password1")
	pair := env.login(t, user)

	video, _ := env.videos.Create(context.Background(), models.Video{Title: "v", Owner: user.ID})
	playlist, _ := env.playlists.Create(context.Background(), models.Playlist{Name: "p", Owner: user.ID})

	rec := env.doJSON(t, http.MethodPatch, "/api/v1/playlists/remove/"+video.ID.Hex()+"/"+playlist.ID.Hex(), pair.AccessToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestRemoveVideoFromPlaylist(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "owner", "owner@example.com", "password1")
	pair := env.login(t, user)

	video, _ := env.videos.Create(context.Background(), models.Video{Title: "v", Owner: user.ID})
	playlist, _ := env.playlists.Create(context.Background(), models.Playlist{Name: "p", Owner: user.ID})
	if err := env.playlists.AddVideo(context.Background(), playlist.ID, user.ID, video.ID); err != nil {
		t.Fatalf("seed playlist video: %v", err)
	}

	rec := env.doJSON(t, http.MethodPatch, "/api/v1/playlists/remove/"+video.ID.Hex()+"/"+playlist.ID.Hex(), pair.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	stored, _ := env.playlists.FindByID(context.Background(), playlist.ID)
	if len(stored.Videos) != 0 {
		t.Fatalf("expected empty playlist, got %v", stored.Videos)
	}
}

func TestUpdatePlaylistScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "owner", "owner@example.com", "password1")
	other := env.seedUser(t, "other", "other@example.com", "password1")
	otherPair := env.login(t, other)

	playlist, _ := env.playlists.Create(context.Background(), models.Playlist{Name: "p", Description: "d", Owner: owner.ID})

	rec := env.doJSON(t, http.MethodPatch, "/api/v1/playlists/"+playlist.ID.Hex(), otherPair.AccessToken, playlistRequest{
		Name:        "hijacked",
		Description: "nope",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestListPlaylistsForUser(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "owner", "owner@example.com", "password1")
	other := env.seedUser(t, "other", "other@example.com", "password1")
	pair := env.login(t, owner)

	env.playlists.Create(context.Background(), models.Playlist{Name: "a", Owner: owner.ID})
	env.playlists.Create(context.Background(), models.Playlist{Name: "b", Owner: other.ID})

	rec := env.doJSON(t, http.MethodGet, "/api/v1/playlists/user/"+owner.ID.Hex(), pair.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var playlists []models.Playlist
	decodeData(t, rec, &playlists)
	if len(playlists) != 1 {
		t.Fatalf("expected 1 playlist, got %d", len(playlists))
	}
}

func TestDeletePlaylist(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "owner", "owner@example.com", "password1")
	pair := env.login(t, user)

	playlist, _ := env.playlists.Create(context.Background(), models.Playlist{Name: "p", Owner: user.ID})

	rec := env.doJSON(t, http.MethodDelete, "/api/v1/playlists/"+playlist.ID.Hex(), pair.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if len(env.playlists.playlists) != 0 {
		t.Fatal("expected playlist to be deleted")
	}
}
