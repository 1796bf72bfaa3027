package core

// registry maps actor refs to actors and remembers spawn order.
//
// Removals while a round is in progress only delete from the map; the order
// slice is compacted when the round ends, so a snapshot taken at round start
// never observes a removed actor through a stale index.
type registry struct {
	// Map of ActorRef to Actor
	actors map[ActorRef]*Actor

	// Refs in spawn order, may contain removed refs while dirty
	order []ActorRef
	dirty bool

	// Depth of in-progress rounds
	rounds int

	// Counter for generating unique refs
	lastRef ActorRef
}

func newRegistry() *registry {
	return &registry{
		actors: make(map[ActorRef]*Actor),
	}
}

// nextRef generates the next actor ref. Refs are never reused, so the
// counter is exhausted after the largest ActorRef has been handed out.
func (r *registry) nextRef() (ActorRef, bool) {
	if r.lastRef == ^ActorRef(0) {
		return NoRef, false
	}
	r.lastRef++
	return r.lastRef, true
}

func (r *registry) add(a *Actor) {
	r.actors[a.ref] = a
	r.order = append(r.order, a.ref)
}

func (r *registry) lookup(ref ActorRef) (*Actor, bool) {
	a, ok := r.actors[ref]
	return a, ok
}

func (r *registry) remove(ref ActorRef) (*Actor, bool) {
	a, ok := r.actors[ref]
	if !ok {
		return nil, false
	}
	delete(r.actors, ref)
	r.dirty = true
	if r.rounds == 0 {
		r.compact()
	}
	return a, true
}

func (r *registry) len() int {
	return len(r.actors)
}

// snapshot returns the registered refs in spawn order.
func (r *registry) snapshot() []ActorRef {
	refs := make([]ActorRef, 0, len(r.actors))
	for _, ref := range r.order {
		if _, ok := r.actors[ref]; ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

func (r *registry) beginRound() {
	r.rounds++
}

func (r *registry) endRound() {
	r.rounds--
	if r.rounds == 0 && r.dirty {
		r.compact()
	}
}

func (r *registry) compact() {
	kept := r.order[:0]
	for _, ref := range r.order {
		if _, ok := r.actors[ref]; ok {
			kept = append(kept, ref)
		}
	}
	for i := len(kept); i < len(r.order); i++ {
		r.order[i] = NoRef
	}
	r.order = kept
	r.dirty = false
}

// clear drops every actor.
func (r *registry) clear() {
	r.actors = make(map[ActorRef]*Actor)
	r.order = nil
	r.dirty = false
}
