package assets

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/prism/engine/assets/loaders"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/systems"
)

type AssetInfo struct {
	Path       string
	Type       loaders.ResourceType
	Name       string
	LastLoaded time.Time
	// Set when the last load failed; the registered entry is left as it was.
	Err error
}

/**
 * @brief Loads matcaps and colormaps from the asset directories and
 * reloads them when they change on disk. A file that fails to load is
 * logged and its materials keep falling back to the defaults.
 */
type AssetManager struct {
	assets  map[string]AssetInfo
	loaders map[loaders.ResourceType]Loader

	mutex sync.RWMutex

	matcaps   MatcapRegistry
	colormaps ColormapRegistry
	// Called after every successful reload, from the watcher goroutine.
	OnChange func(info AssetInfo)

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	started  bool
	isClosed bool
}

func NewAssetManager(matcaps MatcapRegistry, colormaps ColormapRegistry) (*AssetManager, error) {
	if matcaps == nil || colormaps == nil {
		return nil, fmt.Errorf("func NewAssetManager - matcap and colormap registries are required")
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, core.NewIOError(err)
	}

	am := &AssetManager{
		assets:    make(map[string]AssetInfo),
		loaders:   make(map[loaders.ResourceType]Loader),
		matcaps:   matcaps,
		colormaps: colormaps,
		fsnotify:  fsWatch,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	am.registerLoader(loaders.ResourceTypeMatcap, &loaders.ImageLoader{})
	am.registerLoader(loaders.ResourceTypeColormap, &loaders.ColormapLoader{})
	return am, nil
}

/**
 * @brief Loads every asset under the given directories and starts watching
 * them. Missing directories are skipped with a warning.
 */
func (am *AssetManager) Initialize(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); err != nil {
			core.LogWarn("asset directory %s is not available: %s", dir, err)
			continue
		}
		if err := am.watchRecursive(dir); err != nil {
			return err
		}
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if am.isClosed {
		return fmt.Errorf("asset manager already shut down")
	}
	if !am.started {
		am.started = true
		go am.start()
	}
	return nil
}

func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	started := am.started
	am.mutex.Unlock()

	close(am.done)
	if started {
		<-am.stopped
		return nil
	}
	return am.fsnotify.Close()
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType loaders.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

/** @brief The assets seen so far, sorted by path. */
func (am *AssetManager) Assets() []AssetInfo {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	out := make([]AssetInfo, 0, len(am.assets))
	for _, a := range am.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

/**
 * @brief Loads one file and registers what it holds, replacing previous
 * entries with the same name.
 */
func (am *AssetManager) Load(path string) error {
	assetType := loaders.TypeFromPath(path)
	if assetType == loaders.ResourceTypeNone {
		return nil
	}
	loader, ok := am.loaders[assetType]
	if !ok {
		return fmt.Errorf("no loader registered for asset type %s", assetType)
	}

	info := AssetInfo{Path: path, Type: assetType, Name: loaders.ResourceName(path), LastLoaded: time.Now()}
	res, err := loader.Load(path)
	if err == nil {
		err = am.register(res)
	}
	info.Err = err

	am.mutex.Lock()
	am.assets[path] = info
	am.mutex.Unlock()

	if err != nil {
		core.LogWarn("asset %s failed to load, keeping the defaults: %s", path, err)
		return err
	}
	core.LogDebug("loaded %s %s", assetType, path)
	if am.OnChange != nil {
		am.OnChange(info)
	}
	return nil
}

func (am *AssetManager) register(res *loaders.Resource) error {
	switch res.Type {
	case loaders.ResourceTypeMatcap:
		img, ok := res.Data.(image.Image)
		if !ok {
			return fmt.Errorf("%s: %w", res.FullPath, core.ErrMaterialLoad)
		}
		return am.matcaps.RegisterMatcap(res.Name, img, true)
	case loaders.ResourceTypeColormap:
		defs, ok := res.Data.([]systems.ColormapDefinition)
		if !ok {
			return fmt.Errorf("%s: %w", res.FullPath, core.ErrMaterialLoad)
		}
		var errs []error
		for _, def := range defs {
			if err := am.colormaps.Register(def, true); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return nil
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	if e.Op&fsnotify.Create != 0 {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("asset watcher: %s", err)
			}
			return
		}
	}
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		_ = am.Load(e.Name)
	}
	// Removed files keep their registered entries until replaced.
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		am.mutex.Lock()
		delete(am.assets, e.Name)
		am.mutex.Unlock()
	}
}

// watchRecursive adds every directory under path to the watch list and
// loads the files it finds.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return core.NewIOError(err)
		}
		if fi.IsDir() {
			if err := am.fsnotify.Add(walkPath); err != nil {
				return core.NewIOError(err)
			}
			return nil
		}
		_ = am.Load(walkPath)
		return nil
	})
}
