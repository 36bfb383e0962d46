package storage

import (
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Kind — тип сущности-владельца картинки
type Kind string

const (
	KindProduct Kind = "product"
	KindBlog    Kind = "blog"
)

func (k Kind) dir() string {
	if k == KindBlog {
		return "blogs"
	}
	return "products"
}

// Role — главная картинка или дополнительная
type Role int

const (
	RoleAdditional Role = iota
	RoleMain
)

func (r Role) String() string {
	if r == RoleMain {
		return "main"
	}
	return "additional"
}

const (
	defaultRemoteExt = ".jpg"
	mainPrefix       = "main_"
)

// imageExts — допустимые расширения загружаемых файлов
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".svg":  true,
	".avif": true,
	".bmp":  true,
}

// Resolver переводит относительные пути хранилища в публичные URL и обратно.
// Публичный URL: <BaseURL><URLPath>/<relative>, напр.
// http://localhost:8080/images/products/1/main/main_<uuid>.jpg
type Resolver struct {
	BaseURL string
	URLPath string
}

func NewResolver(baseURL, urlPath string) Resolver {
	return Resolver{
		BaseURL: strings.TrimRight(baseURL, "/"),
		URLPath: "/" + strings.Trim(urlPath, "/"),
	}
}

// prefix — "http://host/images/"
func (r Resolver) prefix() string {
	p := r.BaseURL + r.URLPath
	return strings.TrimRight(p, "/") + "/"
}

// PublicURL склеивает базовый URL и относительный путь без двойных "/"
func (r Resolver) PublicURL(relative string) string {
	return r.prefix() + strings.TrimLeft(relative, "/")
}

// RelativePath возвращает относительный путь для управляемого URL;
// ok=false для внешних URL
func (r Resolver) RelativePath(publicURL string) (string, bool) {
	rel, found := strings.CutPrefix(strings.TrimSpace(publicURL), r.prefix())
	if !found {
		return "", false
	}
	if i := strings.IndexAny(rel, "?#"); i >= 0 {
		rel = rel[:i]
	}
	if unescaped, err := url.PathUnescape(rel); err == nil {
		rel = unescaped
	}
	if rel == "" {
		return "", false
	}
	return rel, true
}

// IsManaged — URL указывает на файл из нашего хранилища
func (r Resolver) IsManaged(publicURL string) bool {
	_, ok := r.RelativePath(publicURL)
	return ok
}

// Dir — "<products|blogs>/<id>[/main]"
func Dir(kind Kind, entityID uint, role Role) string {
	dir := kind.dir() + "/" + strconv.FormatUint(uint64(entityID), 10)
	if role == RoleMain {
		dir += "/main"
	}
	return dir
}

// GenerateName — уникальное имя файла: [main_]<uuid><ext>
func GenerateName(role Role, ext string) string {
	name := uuid.NewString() + ext
	if role == RoleMain {
		return mainPrefix + name
	}
	return name
}

// uploadExt — расширение загружаемого файла в нижнем регистре.
// Пустая строка, если расширения нет; ok=false, если оно не картинка.
func uploadExt(fileName string) (string, bool) {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(fileName, "\\", "/")))
	if ext == "" || ext == "." {
		return "", true
	}
	return ext, imageExts[ext]
}

// remoteExt вытаскивает расширение из пути URL, по умолчанию ".jpg"
func remoteExt(u *url.URL) string {
	ext := strings.ToLower(path.Ext(u.Path))
	if imageExts[ext] {
		return ext
	}
	return defaultRemoteExt
}

// remoteFileName — имя файла из пути URL (для колонки file_name)
func remoteFileName(u *url.URL) string {
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return u.Host
	}
	return base
}
