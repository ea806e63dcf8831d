package planner

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// createTestInvite はAPI経由で招待トークンを作成するヘルパー関数。
func createTestInvite(t *testing.T, s *Server, token, roomID string, body any) string {
	t.Helper()
	w := doRequest(s, http.MethodPost, "/api/planning-room/"+roomID+"/invite", token, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("招待の作成に失敗: status=%d, body=%s", w.Code, w.Body.String())
	}
	return parseJSON(t, w)["token"].(string)
}

// TestHandleCreateInvite は招待作成ハンドラを検証する。
func TestHandleCreateInvite(t *testing.T) {
	t.Parallel()

	t.Run("ボディなしでは既定の上限と有効期限で作成されること", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t)
		owner := loginAs(t, s, "owner")
		createTestRoom(t, s, owner, "room-1", "Trip")

		before := time.Now()
		w := doRequest(s, http.MethodPost, "/api/planning-room/room-1/invite", owner, nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード = %d, want %d, body: %s", w.Code, http.StatusCreated, w.Body.String())
		}
		body := parseJSON(t, w)

		token := body["token"].(string)
		if len(token) != 43 {
			t.Errorf("トークン長 = %d, want 43", len(token))
		}
		if body["inviteUrl"] != "https://plan.example.com/api/invite/"+token {
			t.Errorf("inviteUrl = %v", body["inviteUrl"])
		}
		if body["maxUses"] != float64(defaultInviteMaxUses) {
			t.Errorf("maxUses = %v", body["maxUses"])
		}
		expiresAt, err := time.Parse(time.RFC3339, body["expiresAt"].(string))
		if err != nil {
			t.Fatalf("expiresAtのパースに失敗: %v", err)
		}
		if d := expiresAt.Sub(before); d < defaultInviteTTL-time.Minute || d > defaultInviteTTL+time.Minute {
			t.Errorf("有効期間 = %v, want 約%v", d, defaultInviteTTL)
		}
	})

	t.Run("上限と有効期限を指定できること", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t)
		owner := loginAs(t, s, "owner")
		createTestRoom(t, s, owner, "room-1", "Trip")

		token := createTestInvite(t, s, owner, "room-1", map[string]int{"maxUses": 2, "expiresInHours": 1})
		invite, err := s.queries.GetInvite(t.Context(), token)
		if err != nil {
			t.Fatalf("招待の取得に失敗: %v", err)
		}
		if invite.MaxUses != 2 || invite.Uses != 0 || !invite.Active || invite.CreatedBy != "owner" {
			t.Errorf("invite = %+v", invite)
		}
	})

	t.Run("範囲外のオプションは400になること", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t)
		owner := loginAs(t, s, "owner")
		createTestRoom(t, s, owner, "room-1", "Trip")

		for _, body := range []map[string]int{{"maxUses": 0}, {"maxUses": 1001}, {"expiresInHours": 0}, {"expiresInHours": 721}} {
			w := doRequest(s, http.MethodPost, "/api/planning-room/room-1/invite", owner, body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("body=%v: ステータスコード = %d, want %d", body, w.Code, http.StatusBadRequest)
			}
		}
	})

	t.Run("メンバーでないユーザーは招待を作成できないこと", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t)
		createTestRoom(t, s, loginAs(t, s, "owner"), "room-1", "Trip")

		w := doRequest(s, http.MethodPost, "/api/planning-room/room-1/invite", loginAs(t, s, "stranger"), nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusForbidden)
		}
	})
}

// TestHandleRedeemInvite は招待の利用ハンドラを検証する。
func TestHandleRedeemInvite(t *testing.T) {
	t.Parallel()

	t.Run("招待を利用するとメンバーになりルームへ303でリダイレクトされること", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t)
		owner := loginAs(t, s, "owner")
		createTestRoom(t, s, owner, "room-1", "Trip")
		invite := createTestInvite(t, s, owner, "room-1", nil)

		guest := loginAs(t, s, "guest")
		w := doRequest(s, http.MethodGet, "/api/invite/"+invite, guest, nil)

		if w.Code != http.StatusSeeOther {
			t.Fatalf("ステータスコード = %d, want %d, body: %s", w.Code, http.StatusSeeOther, w.Body.String())
		}
		if got := w.Header().Get("Location"); got != "/planning-room/room-1" {
			t.Errorf("Location = %q", got)
		}
		member, err := s.queries.GetRoomMember(t.Context(), "room-1", "guest")
		if err != nil {
			t.Fatalf("メンバーに追加されていない: %v", err)
		}
		if member.Role != "member" {
			t.Errorf("Role = %q, want member", member.Role)
		}

		w = doRequest(s, http.MethodGet, "/api/planning-room/room-1", guest, nil)
		if w.Code != http.StatusOK {
			t.Errorf("参加後のルーム取得: ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("既にメンバーの場合は利用回数を消費しないこと", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t)
		owner := loginAs(t, s, "owner")
		createTestRoom(t, s, owner, "room-1", "Trip")
		invite := createTestInvite(t, s, owner, "room-1", map[string]int{"maxUses": 1})

		w := doRequest(s, http.MethodGet, "/api/invite/"+invite, owner, nil)
		if w.Code != http.StatusSeeOther {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusSeeOther)
		}
		got, err := s.queries.GetInvite(t.Context(), invite)
		if err != nil {
			t.Fatalf("招待の取得に失敗: %v", err)
		}
		if got.Uses != 0 {
			t.Errorf("Uses = %d, want 0", got.Uses)
		}
	})

	t.Run("存在しないトークンは404になること", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t)

		w := doRequest(s, http.MethodGet, "/api/invite/unknown", loginAs(t, s, "guest"), nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("上限に達した招待は410とexhaustedになること", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t)
		owner := loginAs(t, s, "owner")
		createTestRoom(t, s, owner, "room-1", "Trip")
		invite := createTestInvite(t, s, owner, "room-1", map[string]int{"maxUses": 1})

		if w := doRequest(s, http.MethodGet, "/api/invite/"+invite, loginAs(t, s, "guest-1"), nil); w.Code != http.StatusSeeOther {
			t.Fatalf("1人目: ステータスコード = %d, want %d", w.Code, http.StatusSeeOther)
		}
		w := doRequest(s, http.MethodGet, "/api/invite/"+invite, loginAs(t, s, "guest-2"), nil)
		if w.Code != http.StatusGone {
			t.Fatalf("2人目: ステータスコード = %d, want %d", w.Code, http.StatusGone)
		}
		if reason := parseJSON(t, w)["reason"]; reason != "exhausted" {
			t.Errorf("reason = %v, want exhausted", reason)
		}
		if _, err := s.queries.GetRoomMember(t.Context(), "room-1", "guest-2"); err == nil {
			t.Error("上限超過のユーザーがメンバーに追加された")
		}
	})

	t.Run("期限切れの招待は410とexpiredになり利用回数が変わらないこと", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t)
		owner := loginAs(t, s, "owner")
		createTestRoom(t, s, owner, "room-1", "Trip")
		invite := createTestInvite(t, s, owner, "room-1", map[string]int{"expiresInHours": 1})

		s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		w := doRequest(s, http.MethodGet, "/api/invite/"+invite, loginAs(t, s, "guest"), nil)
		if w.Code != http.StatusGone {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusGone)
		}
		if reason := parseJSON(t, w)["reason"]; reason != "expired" {
			t.Errorf("reason = %v, want expired", reason)
		}
		got, _ := s.queries.GetInvite(t.Context(), invite)
		if got.Uses != 0 {
			t.Errorf("Uses = %d, want 0", got.Uses)
		}
	})

	t.Run("同時に利用しても利用回数が上限を超えないこと", func(t *testing.T) {
		t.Parallel()
		assertConcurrentRedemption(t, setupTestServer(t), 12, 3)
	})

	t.Run("複数接続のファイルDBで同時に利用しても利用回数が上限を超えないこと", func(t *testing.T) {
		t.Parallel()
		dbPath := filepath.Join(t.TempDir(), "unifyplan.db")
		assertConcurrentRedemption(t, setupTestServerWithDB(t, testConfig(), dbPath), 40, 3)
	})
}

// assertConcurrentRedemption はguests人が同時に同じ招待を利用し、
// 参加できるのがちょうどmaxUses人であることを検証する。
func assertConcurrentRedemption(t *testing.T, s *Server, guests int, maxUses int64) {
	t.Helper()

	owner := loginAs(t, s, "owner")
	createTestRoom(t, s, owner, "room-1", "Trip")
	invite := createTestInvite(t, s, owner, "room-1", map[string]int64{"maxUses": maxUses})

	tokens := make([]string, guests)
	for i := range tokens {
		tokens[i] = loginAs(t, s, fmt.Sprintf("guest-%d", i))
	}

	// 全員がそろってから一斉にリクエストする
	start := make(chan struct{})
	codes := make(chan int, guests)
	var wg sync.WaitGroup
	for _, token := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			codes <- doRequest(s, http.MethodGet, "/api/invite/"+invite, token, nil).Code
		}()
	}
	close(start)
	wg.Wait()
	close(codes)

	counts := make(map[int]int)
	for code := range codes {
		counts[code]++
	}
	if counts[http.StatusSeeOther] != int(maxUses) || counts[http.StatusGone] != guests-int(maxUses) {
		t.Errorf("ステータスコードの内訳 = %v, want 303:%d 410:%d", counts, maxUses, guests-int(maxUses))
	}

	got, err := s.queries.GetInvite(t.Context(), invite)
	if err != nil {
		t.Fatalf("招待の取得に失敗: %v", err)
	}
	if got.Uses != maxUses {
		t.Errorf("Uses = %d, want %d", got.Uses, maxUses)
	}
	members, err := s.queries.ListRoomMembers(t.Context(), "room-1")
	if err != nil {
		t.Fatalf("メンバーの取得に失敗: %v", err)
	}
	if int64(len(members)) != maxUses+1 {
		t.Errorf("メンバー数 = %d, want %d", len(members), maxUses+1)
	}
}

// TestHandleRevokeInvite は招待の無効化ハンドラを検証する。
func TestHandleRevokeInvite(t *testing.T) {
	t.Parallel()

	t.Run("オーナーが無効化した招待は410とrevokedになること", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t)
		owner := loginAs(t, s, "owner")
		createTestRoom(t, s, owner, "room-1", "Trip")
		invite := createTestInvite(t, s, owner, "room-1", nil)

		w := doRequest(s, http.MethodDelete, "/api/planning-room/room-1/invite/"+invite, owner, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
		}

		w = doRequest(s, http.MethodGet, "/api/invite/"+invite, loginAs(t, s, "guest"), nil)
		if w.Code != http.StatusGone {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusGone)
		}
		if reason := parseJSON(t, w)["reason"]; reason != "revoked" {
			t.Errorf("reason = %v, want revoked", reason)
		}
	})

	t.Run("オーナー以外のメンバーは無効化できないこと", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t)
		owner := loginAs(t, s, "owner")
		createTestRoom(t, s, owner, "room-1", "Trip")
		invite := createTestInvite(t, s, owner, "room-1", nil)
		member := loginAs(t, s, "member")
		if w := doRequest(s, http.MethodGet, "/api/invite/"+invite, member, nil); w.Code != http.StatusSeeOther {
			t.Fatalf("参加に失敗: %d", w.Code)
		}

		w := doRequest(s, http.MethodDelete, "/api/planning-room/room-1/invite/"+invite, member, nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusForbidden)
		}
	})

	t.Run("別のルームの招待や存在しない招待は404になること", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t)
		owner := loginAs(t, s, "owner")
		createTestRoom(t, s, owner, "room-1", "Trip")
		createTestRoom(t, s, owner, "room-2", "Other")
		invite := createTestInvite(t, s, owner, "room-2", nil)

		for _, path := range []string{
			"/api/planning-room/room-1/invite/" + invite,
			"/api/planning-room/room-1/invite/unknown",
		} {
			w := doRequest(s, http.MethodDelete, path, owner, nil)
			if w.Code != http.StatusNotFound {
				t.Errorf("%s: ステータスコード = %d, want %d", strings.TrimPrefix(path, "/api"), w.Code, http.StatusNotFound)
			}
		}
	})
}
