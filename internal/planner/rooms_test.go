package planner

import (
	"net/http"
	"testing"

	"github.com/unifyplan/unifyplan/pkg/activity"
)

// TestHandleCreateRoom はルーム作成ハンドラを検証する。
func TestHandleCreateRoom(t *testing.T) {
	t.Parallel()

	t.Run("idとnameでルームを作成すると201でroomIdが返ること", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t)
		token := loginAs(t, s, "user-1")

		w := doRequest(s, http.MethodPost, "/api/rooms", token, map[string]string{"id": "room-1", "name": "夏合宿"})

		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード = %d, want %d, body: %s", w.Code, http.StatusCreated, w.Body.String())
		}
		body := parseJSON(t, w)
		if body["success"] != true || body["roomId"] != "room-1" || body["name"] != "夏合宿" {
			t.Errorf("body = %v", body)
		}

		member, err := s.queries.GetRoomMember(t.Context(), "room-1", "user-1")
		if err != nil {
			t.Fatalf("作成者がメンバーに登録されていない: %v", err)
		}
		if member.Role != "owner" {
			t.Errorf("Role = %q, want owner", member.Role)
		}

		acts, err := s.queries.ListActivitiesByRoom(t.Context(), "room-1", 10)
		if err != nil {
			t.Fatalf("アクティビティの取得に失敗: %v", err)
		}
		if len(acts) != 1 || acts[0].Type != string(activity.TypeRoomCreated) {
			t.Errorf("activities = %+v", acts)
		}
	})

	tests := []struct {
		name string
		body any
	}{
		{name: "idが無い場合は400になること", body: map[string]string{"name": "n"}},
		{name: "nameが無い場合は400になること", body: map[string]string{"id": "room-1"}},
		{name: "空白だけのnameは400になること", body: map[string]string{"id": "room-1", "name": "   "}},
		{name: "ボディが無い場合は400になること", body: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := setupTestServer(t)

			w := doRequest(s, http.MethodPost, "/api/rooms", loginAs(t, s, "user-1"), tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if _, ok := parseJSON(t, w)["error"]; !ok {
				t.Error("errorフィールドが含まれていない")
			}
		})
	}

	t.Run("同じidのルームは409になり既存のルームは変わらないこと", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t)
		createTestRoom(t, s, loginAs(t, s, "user-1"), "room-1", "original")

		w := doRequest(s, http.MethodPost, "/api/rooms", loginAs(t, s, "user-2"), map[string]string{"id": "room-1", "name": "takeover"})
		if w.Code != http.StatusConflict {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusConflict)
		}

		room, err := s.queries.GetRoomByID(t.Context(), "room-1")
		if err != nil {
			t.Fatalf("ルームの取得に失敗: %v", err)
		}
		if room.Name != "original" || room.OwnerID != "user-1" {
			t.Errorf("room = %+v", room)
		}
		if _, err := s.queries.GetRoomMember(t.Context(), "room-1", "user-2"); err == nil {
			t.Error("失敗した作成でメンバーが追加された")
		}
	})
}

// TestHandleListRooms はルーム一覧ハンドラを検証する。
func TestHandleListRooms(t *testing.T) {
	t.Parallel()

	s := setupTestServer(t)
	alice := loginAs(t, s, "alice")
	bob := loginAs(t, s, "bob")
	createTestRoom(t, s, alice, "room-a", "Alice's room")
	createTestRoom(t, s, bob, "room-b", "Bob's room")

	t.Run("自分が参加しているルームだけが返ること", func(t *testing.T) {
		t.Parallel()

		w := doRequest(s, http.MethodGet, "/api/rooms", alice, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		rooms := parseJSON(t, w)["rooms"].([]any)
		if len(rooms) != 1 {
			t.Fatalf("ルーム数 = %d, want 1", len(rooms))
		}
		room := rooms[0].(map[string]any)
		if room["id"] != "room-a" || room["role"] != "owner" {
			t.Errorf("room = %v", room)
		}
	})

	t.Run("ルームが無いユーザーには空配列が返ること", func(t *testing.T) {
		t.Parallel()

		w := doRequest(s, http.MethodGet, "/api/rooms", loginAs(t, s, "carol"), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		rooms, ok := parseJSON(t, w)["rooms"].([]any)
		if !ok || len(rooms) != 0 {
			t.Errorf("rooms = %v", rooms)
		}
	})
}

// TestHandleGetPlanningRoom はプランニングルーム取得ハンドラを検証する。
func TestHandleGetPlanningRoom(t *testing.T) {
	t.Parallel()

	s := setupTestServer(t)
	owner := loginAs(t, s, "owner")
	createTestRoom(t, s, owner, "room-1", "Trip")

	t.Run("存在しないルームは404とRoom not foundになること", func(t *testing.T) {
		t.Parallel()

		w := doRequest(s, http.MethodGet, "/api/planning-room/nope", owner, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusNotFound)
		}
		if got := parseJSON(t, w)["error"]; got != "Room not found" {
			t.Errorf("error = %v, want %q", got, "Room not found")
		}
	})

	t.Run("メンバーでないユーザーは403になること", func(t *testing.T) {
		t.Parallel()

		w := doRequest(s, http.MethodGet, "/api/planning-room/room-1", loginAs(t, s, "stranger"), nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusForbidden)
		}
	})

	t.Run("メンバーにはルーム・メンバー・カードが返ること", func(t *testing.T) {
		t.Parallel()

		w := doRequest(s, http.MethodGet, "/api/planning-room/room-1", owner, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		body := parseJSON(t, w)
		room := body["room"].(map[string]any)
		if room["id"] != "room-1" || room["name"] != "Trip" || room["ownerId"] != "owner" {
			t.Errorf("room = %v", room)
		}
		members := body["members"].([]any)
		if len(members) != 1 || members[0].(map[string]any)["role"] != "owner" {
			t.Errorf("members = %v", members)
		}
		if cards, ok := body["cards"].([]any); !ok || len(cards) != 0 {
			t.Errorf("cards = %v", body["cards"])
		}
		if body["isOwner"] != true {
			t.Errorf("isOwner = %v", body["isOwner"])
		}
	})
}
