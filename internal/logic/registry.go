package logic

import "github.com/pkg/errors"

// Registry is the fixed, ordered set of channels the engine filters.
// The order given to NewRegistry is the order Process reports changes in.
type Registry struct {
	channels []Channel
	index    map[string]int
}

// NewRegistry validates and freezes a channel list.
func NewRegistry(channels ...Channel) (*Registry, error) {
	r := &Registry{
		channels: make([]Channel, len(channels)),
		index:    make(map[string]int, len(channels)),
	}
	for i, ch := range channels {
		if ch.ID == "" {
			return nil, errors.Wrapf(ErrInvalidConfig, "channel %d has no id", i)
		}
		if ch.Source == nil {
			return nil, errors.Wrapf(ErrInvalidConfig, "channel %s has no raw source", ch.ID)
		}
		if _, dup := r.index[ch.ID]; dup {
			return nil, errors.Wrapf(ErrInvalidConfig, "duplicate channel id %s", ch.ID)
		}
		r.channels[i] = ch
		r.index[ch.ID] = i
	}
	return r, nil
}

// Channels returns a copy of the channels in registry order.
func (r *Registry) Channels() []Channel {
	out := make([]Channel, len(r.channels))
	copy(out, r.channels)
	return out
}

// Lookup returns the channel with the given id.
func (r *Registry) Lookup(id string) (Channel, bool) {
	i, ok := r.index[id]
	if !ok {
		return Channel{}, false
	}
	return r.channels[i], true
}

// Len returns the number of channels.
func (r *Registry) Len() int {
	return len(r.channels)
}
