package repositories

import (
	"chat-relay/domain/chat"
	"fmt"
)

// Key layout. Numeric parts are zero padded so that lexicographic order
// matches numeric order during prefix scans.
//
//	msg:id:{message}                        -> DiskMessage
//	msg:chat:{chat}:{timestamp}:{message}   -> history index, ordered by (timestamp, id)
//	idem:{sender}:{client_message_id}       -> message id
//	chat:id:{chat}                          -> DiskChat
//	chat:direct:{low user}:{high user}      -> chat id
//	chat:group:{creator}:{name}             -> chat id
//	member:{chat}:{user}                    -> membership
//	user:chats:{user}:{chat}                -> reverse membership
//	user:id:{user}                          -> DiskUser
//	user:email:{email}                      -> user id
const (
	messageSequenceKey = "seq:message"
	chatSequenceKey    = "seq:chat"
	userSequenceKey    = "seq:user"
)

func messageKey(id chat.MessageID) []byte {
	return []byte(fmt.Sprintf("msg:id:%020d", id))
}

func historyPrefix(chatID chat.ChatID) []byte {
	return []byte(fmt.Sprintf("msg:chat:%020d:", chatID))
}

func historyKey(m chat.Message) []byte {
	return []byte(fmt.Sprintf("msg:chat:%020d:%020d:%020d", m.ChatID, m.Timestamp, m.ID))
}

func idempotencyKey(sender chat.UserID, clientMessageID string) []byte {
	return []byte(fmt.Sprintf("idem:%020d:%s", sender, clientMessageID))
}

func chatKey(id chat.ChatID) []byte {
	return []byte(fmt.Sprintf("chat:id:%020d", id))
}

func directChatKey(a, b chat.UserID) []byte {
	if a > b {
		a, b = b, a
	}
	return []byte(fmt.Sprintf("chat:direct:%020d:%020d", a, b))
}

func groupChatKey(creator chat.UserID, name string) []byte {
	return []byte(fmt.Sprintf("chat:group:%020d:%s", creator, name))
}

func memberPrefix(chatID chat.ChatID) []byte {
	return []byte(fmt.Sprintf("member:%020d:", chatID))
}

func memberKey(chatID chat.ChatID, userID chat.UserID) []byte {
	return []byte(fmt.Sprintf("member:%020d:%020d", chatID, userID))
}

func userChatsPrefix(userID chat.UserID) []byte {
	return []byte(fmt.Sprintf("user:chats:%020d:", userID))
}

func userChatKey(userID chat.UserID, chatID chat.ChatID) []byte {
	return []byte(fmt.Sprintf("user:chats:%020d:%020d", userID, chatID))
}

func userKey(id chat.UserID) []byte {
	return []byte(fmt.Sprintf("user:id:%020d", id))
}

func userEmailKey(email string) []byte {
	return []byte("user:email:" + email)
}
