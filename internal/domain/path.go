package domain

import "strings"

// Нормализованная форма пути: без ведущего слеша, корень - пустая строка.
// Инвариант кеша: path(folder) == JoinPath(path(parent), folder.Name).

func JoinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// IsSubPath сообщает, лежит ли path внутри поддерева root (или совпадает с ним).
// Используется для запрета перемещения папки под собственного потомка.
func IsSubPath(root, path string) bool {
	return path == root || strings.HasPrefix(path, root+"/")
}
