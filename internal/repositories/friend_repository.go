package repositories

import "context"

// FriendRepository defines data access for a user's friend list. Lists are
// directional: AddFriend extends only the owner's list.
type FriendRepository interface {
	ListFriends(ctx context.Context, userName string) ([]string, error)
	AddFriend(ctx context.Context, userName, friendName string) error
	RemoveFriend(ctx context.Context, userName, friendName string) error
}
