//go:build linux

package window

import (
	"fmt"
	"regexp"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/shm"
	"github.com/jezek/xgb/xproto"
	"golang.org/x/sys/unix"

	"github.com/zoeyai/zoeymatch/pkg/auto"
	"github.com/zoeyai/zoeymatch/pkg/vision/raster"
)

// x11 一次查找所需的连接与原子
type x11 struct {
	conn       *xgb.Conn
	root       xproto.Window
	netWMName  xproto.Atom
	netWMPid   xproto.Atom
	utf8String xproto.Atom
}

func openX11() (*x11, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("%w: 连接 X 服务器失败: %w", ErrCaptureFailed, err)
	}
	x := &x11{
		conn: conn,
		root: xproto.Setup(conn).DefaultScreen(conn).Root,
	}
	x.netWMName = x.atom("_NET_WM_NAME")
	x.netWMPid = x.atom("_NET_WM_PID")
	x.utf8String = x.atom("UTF8_STRING")
	return x, nil
}

func (x *x11) Close() {
	x.conn.Close()
}

// atom 查询已存在的原子，不存在时返回 0
func (x *x11) atom(name string) xproto.Atom {
	reply, err := xproto.InternAtom(x.conn, true, uint16(len(name)), name).Reply()
	if err != nil || reply == nil {
		return xproto.AtomNone
	}
	return reply.Atom
}

// titles 依次读取 _NET_WM_NAME 与 WM_NAME
func (x *x11) titles(win xproto.Window) []string {
	var out []string
	if x.netWMName != xproto.AtomNone {
		if v := x.stringProperty(win, x.netWMName); v != "" {
			out = append(out, v)
		}
	}
	if v := x.stringProperty(win, xproto.AtomWmName); v != "" {
		out = append(out, v)
	}
	return out
}

func (x *x11) stringProperty(win xproto.Window, prop xproto.Atom) string {
	reply, err := xproto.GetProperty(x.conn, false, win, prop, xproto.GetPropertyTypeAny, 0, 1<<12).Reply()
	if err != nil || reply == nil || reply.Format != 8 {
		return ""
	}
	return string(reply.Value)
}

func (x *x11) pid(win xproto.Window) int {
	if x.netWMPid == xproto.AtomNone {
		return 0
	}
	reply, err := xproto.GetProperty(x.conn, false, win, x.netWMPid, xproto.AtomCardinal, 0, 1).Reply()
	if err != nil || reply == nil || reply.Format != 32 || len(reply.Value) < 4 {
		return 0
	}
	return int(xgb.Get32(reply.Value))
}

// search 先比较当前窗口名称，再深度优先遍历子窗口
func (x *x11) search(win xproto.Window, re *regexp.Regexp) (xproto.Window, string, bool) {
	if title, ok := matchTitle(re, x.titles(win)...); ok {
		return win, title, true
	}

	tree, err := xproto.QueryTree(x.conn, win).Reply()
	if err != nil {
		return 0, "", false
	}
	for _, child := range tree.Children {
		if found, title, ok := x.search(child, re); ok {
			return found, title, true
		}
	}
	return 0, "", false
}

func (x *x11) find(name string) (xproto.Window, string, error) {
	re, err := NamePattern(name)
	if err != nil {
		return 0, "", err
	}
	win, title, ok := x.search(x.root, re)
	if !ok {
		return 0, "", notFound(name)
	}
	return win, title, nil
}

func locateWindow(name string) (*Info, error) {
	x, err := openX11()
	if err != nil {
		return nil, err
	}
	defer x.Close()

	win, title, err := x.find(name)
	if err != nil {
		return nil, err
	}
	geom, err := xproto.GetGeometry(x.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, fmt.Errorf("获取窗口尺寸失败: %w", err)
	}
	pos, err := xproto.TranslateCoordinates(x.conn, win, x.root, 0, 0).Reply()
	if err != nil {
		return nil, fmt.Errorf("获取窗口位置失败: %w", err)
	}

	return &Info{
		Handle: uint64(win),
		Title:  title,
		PID:    x.pid(win),
		Bounds: auto.Region{
			X:      int(pos.DstX),
			Y:      int(pos.DstY),
			Width:  int(geom.Width),
			Height: int(geom.Height),
		},
	}, nil
}

func captureWindow(name string, width, height int) (*raster.Raster, error) {
	x, err := openX11()
	if err != nil {
		return nil, err
	}
	defer x.Close()

	win, _, err := x.find(name)
	if err != nil {
		return nil, err
	}
	geom, err := xproto.GetGeometry(x.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, fmt.Errorf("%w: 获取窗口尺寸失败: %w", ErrCaptureFailed, err)
	}
	w, h := clipSize(width, height, int(geom.Width), int(geom.Height))
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: 窗口尺寸为 0: %s", ErrCaptureFailed, name)
	}

	img, shmErr := x.grabShm(win, w, h)
	if shmErr == nil {
		return img, nil
	}
	img, err = x.grab(win, w, h)
	if err != nil {
		return nil, fmt.Errorf("%w: %w (MIT-SHM: %v)", ErrCaptureFailed, err, shmErr)
	}
	return img, nil
}

// grabShm 通过 MIT-SHM 共享内存截取 ZPixmap
func (x *x11) grabShm(win xproto.Window, w, h int) (*raster.Raster, error) {
	if err := shm.Init(x.conn); err != nil {
		return nil, fmt.Errorf("MIT-SHM 扩展不可用: %w", err)
	}

	size := w * h * 4
	id, err := unix.SysvShmGet(unix.IPC_PRIVATE, size, unix.IPC_CREAT|0o600)
	if err != nil {
		return nil, fmt.Errorf("分配共享内存失败: %w", err)
	}
	defer unix.SysvShmCtl(id, unix.IPC_RMID, nil)

	data, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("映射共享内存失败: %w", err)
	}
	defer unix.SysvShmDetach(data)

	seg, err := shm.NewSegId(x.conn)
	if err != nil {
		return nil, err
	}
	if err := shm.AttachChecked(x.conn, seg, uint32(id), false).Check(); err != nil {
		return nil, fmt.Errorf("X 服务器挂载共享内存失败: %w", err)
	}
	defer shm.Detach(x.conn, seg)

	reply, err := shm.GetImage(x.conn, xproto.Drawable(win), 0, 0, uint16(w), uint16(h),
		0xffffffff, xproto.ImageFormatZPixmap, seg, 0).Reply()
	if err != nil {
		return nil, err
	}
	if reply.Depth < 24 {
		return nil, fmt.Errorf("不支持的颜色深度: %d", reply.Depth)
	}
	return raster.FromBGRX(w, h, w*4, data[:size])
}

// grab 不使用共享内存的截图
func (x *x11) grab(win xproto.Window, w, h int) (*raster.Raster, error) {
	reply, err := xproto.GetImage(x.conn, xproto.ImageFormatZPixmap, xproto.Drawable(win),
		0, 0, uint16(w), uint16(h), 0xffffffff).Reply()
	if err != nil {
		return nil, err
	}
	if reply.Depth < 24 {
		return nil, fmt.Errorf("不支持的颜色深度: %d", reply.Depth)
	}
	return raster.FromBGRX(w, h, w*4, reply.Data)
}
