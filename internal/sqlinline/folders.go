package sqlinline

const QInsertCacheFolder = `--sql ffa17595-2ed7-4920-9c89-5a3e083bdd25
insert into cache_folders(
  id,
  name,
  path,
  priority,
  max_size,
  is_active,
  created_at,
  updated_at
) values (
  $1::uuid,
  $2::text,
  $3::text,
  $4::int,
  $5::bigint,
  $6::boolean,
  now(),
  now()
) returning created_at, updated_at;
`

const QUpdateCacheFolderSettings = `--sql d747a74c-5309-4fc8-812b-c9b1eadfc19e
update cache_folders
set name = $2::text,
    priority = $3::int,
    max_size = $4::bigint,
    is_active = $5::boolean,
    updated_at = now()
where id = $1::uuid;
`

const QSelectCacheFolderByID = `--sql 1288a13d-5ffa-4a0b-96c3-f199c2f0a66a
select id::text, name, path, priority, max_size, current_size, file_count, is_active,
       last_cache_generated_at, last_cleanup_at, cached_collections, created_at, updated_at
from cache_folders
where id = $1::uuid
limit 1;
`

const QSelectCacheFolderByPath = `--sql e5219ce9-dca6-40a6-855e-a2222e36fc9e
select id::text, name, path, priority, max_size, current_size, file_count, is_active,
       last_cache_generated_at, last_cleanup_at, cached_collections, created_at, updated_at
from cache_folders
where path = $1::text
limit 1;
`

const QListCacheFolders = `--sql 1f885162-5c64-41b5-808f-89624c9affbe
select id::text, name, path, priority, max_size, current_size, file_count, is_active,
       last_cache_generated_at, last_cleanup_at, cached_collections, created_at, updated_at
from cache_folders
order by priority asc, name asc;
`

const QListActiveCacheFolders = `--sql f0262562-1c8d-4eff-8bba-440f38a474ce
select id::text, name, path, priority, max_size, current_size, file_count, is_active,
       last_cache_generated_at, last_cleanup_at, cached_collections, created_at, updated_at
from cache_folders
where is_active
order by priority asc, (max_size - current_size) desc, name asc;
`

const QSelectCacheFolderByCollection = `--sql 09f8df37-64dd-4a87-b655-23f0ef22caa0
select id::text, name, path, priority, max_size, current_size, file_count, is_active,
       last_cache_generated_at, last_cleanup_at, cached_collections, created_at, updated_at
from cache_folders
where $1::text = any(cached_collections)
order by is_active desc, priority asc
limit 1;
`

const QIncrementFolderSize = `--sql 53c6cbe1-56cc-4086-a89f-a1277566f077
update cache_folders
set current_size = current_size + $2::bigint,
    updated_at = now()
where id = $1::uuid;
`

const QDecrementFolderSize = `--sql dde2928d-4dde-4035-ac4b-fef727fccdd8
update cache_folders f
set current_size = greatest(f.current_size - $2::bigint, 0),
    updated_at = now()
from (
    select id, current_size
    from cache_folders
    where id = $1::uuid
    for update
) prev
where f.id = prev.id
returning prev.current_size < $2::bigint;
`

const QIncrementFolderFileCount = `--sql 86cac729-8ec4-46e1-aff9-17d10e1c95b7
update cache_folders
set file_count = file_count + $2::bigint,
    last_cache_generated_at = now(),
    updated_at = now()
where id = $1::uuid;
`

const QDecrementFolderFileCount = `--sql 887a42b5-9824-46f2-b69a-78dbde20bbc8
update cache_folders f
set file_count = greatest(f.file_count - $2::bigint, 0),
    updated_at = now()
from (
    select id, file_count
    from cache_folders
    where id = $1::uuid
    for update
) prev
where f.id = prev.id
returning prev.file_count < $2::bigint;
`

const QAddFolderCollection = `--sql 6d381b4e-bf62-49ae-bc3f-a71e239b8965
update cache_folders
set cached_collections = array_append(cached_collections, $2::text),
    updated_at = now()
where id = $1::uuid
  and not ($2::text = any(cached_collections));
`

const QRemoveFolderCollection = `--sql a848e2ac-072f-44a5-8c09-28ccda02122b
update cache_folders
set cached_collections = array_remove(cached_collections, $2::text),
    updated_at = now()
where id = $1::uuid;
`

const QSetFolderStats = `--sql 0c11ba5d-7ec4-4b8a-8fdf-4976bd9817bf
update cache_folders
set current_size = $2::bigint,
    file_count = $3::bigint,
    last_cleanup_at = $4::timestamptz,
    updated_at = now()
where id = $1::uuid;
`
