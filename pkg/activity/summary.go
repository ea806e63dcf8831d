package activity

import "fmt"

// Summary はアクティビティを一覧表示用の一行の文章にする。
// 未知の種類は種類名をそのまま返す。
func Summary(a *Activity) (string, error) {
	switch a.Type {
	case TypeRoomCreated:
		d, err := DecodeData[RoomCreatedData](a)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Room %q created", d.Name), nil
	case TypeCardCreated:
		d, err := DecodeData[CardCreatedData](a)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Card %q added", d.Title), nil
	case TypeInviteCreated:
		d, err := DecodeData[InviteCreatedData](a)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Invite created (max %d uses, expires %s)", d.MaxUses, d.ExpiresAt.UTC().Format("2006-01-02 15:04 MST")), nil
	case TypeInviteRevoked:
		d, err := DecodeData[InviteRevokedData](a)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Invite %s… revoked", d.TokenPrefix), nil
	case TypeMemberJoined:
		d, err := DecodeData[MemberJoinedData](a)
		if err != nil {
			return "", err
		}
		return "Member joined via " + d.Via, nil
	default:
		return string(a.Type), nil
	}
}
