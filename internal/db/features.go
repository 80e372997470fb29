package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// geometryColumn is the alias the feature queries give the GeoJSON text of
// each row's geometry.
const geometryColumn = "__geometry"

// FeatureReader enumerates features of any source DuckDB can open: GDAL
// formats through ST_Read and GeoParquet through read_parquet.
type FeatureReader struct {
	db *sql.DB
}

// NewFeatureReader returns a reader over an open DuckDB connection with the
// spatial extension loaded.
func NewFeatureReader(db *sql.DB) *FeatureReader {
	return &FeatureReader{db: db}
}

// Read runs the feature query for path and converts each row to a feature.
func (r *FeatureReader) Read(ctx context.Context, path string) (*geojson.FeatureCollection, error) {
	rows, err := r.db.QueryContext(ctx, featureQuery(path))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", filepath.Base(path), err)
	}
	defer rows.Close()
	return scanFeatures(rows)
}

// featureQuery selects every attribute column plus the geometry as GeoJSON.
func featureQuery(path string) string {
	lit := quote(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".geoparquet":
		return fmt.Sprintf("SELECT * EXCLUDE (geometry), ST_AsGeoJSON(geometry)::VARCHAR AS %s FROM read_parquet(%s)", geometryColumn, lit)
	}
	return fmt.Sprintf("SELECT * EXCLUDE (geom), ST_AsGeoJSON(geom)::VARCHAR AS %s FROM ST_Read(%s)", geometryColumn, lit)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// scanFeatures converts result rows into features. The geometryColumn
// column holds GeoJSON geometry text; every other column is a property.
func scanFeatures(rows *sql.Rows) (*geojson.FeatureCollection, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		f := &geojson.Feature{Type: "Feature", Properties: geojson.Properties{}}
		for i, col := range cols {
			if col != geometryColumn {
				f.Properties[col] = values[i]
				continue
			}
			text, ok := values[i].(string)
			if !ok || text == "" {
				continue
			}
			g, err := geojson.UnmarshalGeometry([]byte(text))
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", len(fc.Features), err)
			}
			f.Geometry = g.Geometry()
		}
		fc.Append(f)
	}
	return fc, rows.Err()
}
