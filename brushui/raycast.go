package brushui

import "github.com/soypat/terrabrush/terrain"

// RaycastCache holds the last accepted cursor hit and the terrain under the cursor.
// While locked, updates are ignored so a stroke started on one terrain does not
// retarget when the cursor crosses into another.
type RaycastCache struct {
	hit     terrain.Hit
	terrain *terrain.Terrain
	locked  bool
}

// Update stores hit and t as the current snapshot unless the cache is locked.
// It reports whether the snapshot was accepted.
func (rc *RaycastCache) Update(hit terrain.Hit, t *terrain.Terrain) bool {
	if rc.locked {
		return false
	}
	rc.hit = hit
	rc.terrain = t
	return true
}

// Set stores the snapshot regardless of the lock.
func (rc *RaycastCache) Set(hit terrain.Hit, t *terrain.Terrain) {
	rc.hit = hit
	rc.terrain = t
}

func (rc *RaycastCache) Lock()        { rc.locked = true }
func (rc *RaycastCache) Unlock()      { rc.locked = false }
func (rc *RaycastCache) Locked() bool { return rc.locked }

// CurrentHit returns the last accepted hit. It is the zero, invalid Hit before any update.
func (rc *RaycastCache) CurrentHit() terrain.Hit { return rc.hit }

// Terrain returns the terrain of the last accepted hit.
func (rc *RaycastCache) Terrain() *terrain.Terrain { return rc.terrain }
