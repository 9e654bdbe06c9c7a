package feature

import "math"

// 文档注释：KD-Tree 最近要素（二维经纬）
// 背景：地图点选时按缓存质心找最近要素；索引在每次查询时按当前可见要素构建，规模为单个项目的要素数。
// 约束：按经度/纬度交替分割；仅支持最近一个点查询；无缓存质心的要素不入树。
type kdNode struct {
	f  *Feature
	ax int // 0:lon,1:lat
	l  *kdNode
	r  *kdNode
}

func buildKD(fs []*Feature, depth int) *kdNode {
	if len(fs) == 0 {
		return nil
	}
	ax := depth % 2
	mid := len(fs) / 2
	selectNth(fs, mid, ax)
	node := &kdNode{f: fs[mid], ax: ax}
	node.l = buildKD(fs[:mid], depth+1)
	node.r = buildKD(fs[mid+1:], depth+1)
	return node
}

// 原地 nth 元素选择
func selectNth(a []*Feature, n int, ax int) {
	lo, hi := 0, len(a)-1
	for lo < hi {
		p := partition(a, lo, hi, (lo+hi)/2, ax)
		if p == n {
			return
		}
		if n < p {
			hi = p - 1
		} else {
			lo = p + 1
		}
	}
}

func partition(a []*Feature, lo, hi, pivot, ax int) int {
	pv := a[pivot]
	a[pivot], a[hi] = a[hi], a[pivot]
	i := lo
	for j := lo; j < hi; j++ {
		if coord(a[j], ax) < coord(pv, ax) {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi] = a[hi], a[i]
	return i
}

func coord(f *Feature, ax int) float64 { return f.Cache.Centroid[ax] }

// 文档注释：最近要素查询
// 背景：候选集合由调用方传入（通常为通过可见性过滤的要素）；返回要素与距离（米）。
// 返回：没有可用质心时返回 nil。
func Nearest(fs []*Feature, lon, lat float64) (*Feature, float64) {
	cand := make([]*Feature, 0, len(fs))
	for _, f := range fs {
		if f != nil && f.Cache.HasGeometry {
			cand = append(cand, f)
		}
	}
	root := buildKD(cand, 0)
	if root == nil {
		return nil, 0
	}
	var best *Feature
	bestD := math.MaxFloat64
	var dfs func(n *kdNode)
	dfs = func(n *kdNode) {
		if n == nil {
			return
		}
		c := n.f.Cache.Centroid
		d := haversine(lat, lon, c[1], c[0])
		if d < bestD {
			bestD = d
			best = n.f
		}
		key := lon
		if n.ax == 1 {
			key = lat
		}
		q := c[n.ax]
		first, second := n.l, n.r
		if key > q {
			first, second = n.r, n.l
		}
		dfs(first)
		// 分割平面到查询点的角距离换算为米后小于当前最优才遍历另一侧
		if planeDistance(key-q, n.ax, lat) < bestD {
			dfs(second)
		}
	}
	dfs(root)
	return best, bestD
}

const earthRadius = 6371008.8

// planeDistance：查询点到分割平面的球面距离下界（米）；经度平面取到经线大圆的距离
func planeDistance(deg float64, ax int, lat float64) float64 {
	rad := math.Abs(deg) * math.Pi / 180
	if ax == 1 {
		return rad * earthRadius
	}
	if rad >= math.Pi/2 {
		return 0
	}
	return math.Asin(math.Sin(rad)*math.Cos(lat*math.Pi/180)) * earthRadius
}

// 球面距离（Haversine），返回米
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}
