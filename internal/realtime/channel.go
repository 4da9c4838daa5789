package realtime

import "github.com/bitcoinworld/arcade-server/internal/domain"

// Channel addresses a set of subscribers.
type Channel string

// Broadcast reaches every connected client.
const Broadcast Channel = "broadcast"

// UserChannel reaches the connections of one user.
func UserChannel(userID string) Channel {
	return Channel("user:" + userID)
}

// WalletChannel reaches the connections authenticated as one wallet.
func WalletChannel(walletAddress string) Channel {
	return Channel("wallet:" + walletAddress)
}

// Delivery pairs an event with its target channel. Aliases name other
// channels for the same audience; a client subscribed to several of them
// still receives the event once.
type Delivery struct {
	Channel Channel
	Aliases []Channel
	Event   Event
}

// ToUser addresses the connections of one user, by id and by wallet.
func ToUser(identity Identity, event Event) Delivery {
	d := Delivery{Channel: UserChannel(identity.UserID), Event: event}
	if identity.WalletAddress != "" {
		d.Aliases = []Channel{WalletChannel(identity.WalletAddress)}
	}
	return d
}

// Identity is who a connection belongs to. The zero value is anonymous.
type Identity = domain.Identity

// Publisher sends ordered batches of events to subscribers.
type Publisher interface {
	// Publish queues deliveries as one batch. Events in a batch reach each
	// subscriber in order and are not interleaved with other batches.
	Publish(deliveries ...Delivery)
}

// NoopPublisher discards everything.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(...Delivery) {}
